package ast

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"astcensus/internal/core/errors"
)

// Decode reads one JSON document (e.g. ESTree output of Babel) into a Value.
// Objects whose "type" is a string become typed nodes; field order is kept.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "decode json tree")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New(errors.CodeParse, "trailing data after json tree")
	}
	return v, nil
}

// DecodeNode is Decode for inputs whose root must be a node. A top-level
// "File" wrapper (Babel) is unwrapped to its "program".
func DecodeNode(r io.Reader) (*Node, error) {
	v, err := Decode(r)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*Node)
	if !ok || n == nil {
		return nil, errors.New(errors.CodeParse, "json tree root is not an object")
	}
	if n.Kind == "File" {
		if program, ok := n.Child("program"); ok {
			return program, nil
		}
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Num(f), nil
	case string:
		return Str(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	n := &Node{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		if key == "type" && n.Kind == "" {
			if s, ok := v.(Scalar); ok {
				if kind, ok := s.V.(string); ok && kind != "" {
					n.Kind = kind
					continue
				}
			}
		}
		n.Fields = append(n.Fields, Field{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	list := List{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return list, nil
}

// Encode writes v as indented JSON with the "type" tag first and the
// remaining fields in their original order.
func Encode(w io.Writer, v Value) error {
	bw := bufio.NewWriter(w)
	if err := encodeValue(bw, v, 0); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

// Marshal is Encode into a byte slice.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(w *bufio.Writer, v Value, depth int) error {
	switch x := v.(type) {
	case nil:
		_, err := w.WriteString("null")
		return err
	case Scalar:
		raw, err := json.Marshal(x.V)
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	case List:
		if len(x) == 0 {
			_, err := w.WriteString("[]")
			return err
		}
		w.WriteString("[\n")
		for i, item := range x {
			writeIndent(w, depth+1)
			if err := encodeValue(w, item, depth+1); err != nil {
				return err
			}
			if i < len(x)-1 {
				w.WriteByte(',')
			}
			w.WriteByte('\n')
		}
		writeIndent(w, depth)
		_, err := w.WriteString("]")
		return err
	case *Node:
		if x == nil {
			_, err := w.WriteString("null")
			return err
		}
		fields := x.Fields
		if x.Kind != "" {
			fields = append([]Field{{Key: "type", Value: Str(x.Kind)}}, fields...)
		}
		if len(fields) == 0 {
			_, err := w.WriteString("{}")
			return err
		}
		w.WriteString("{\n")
		for i, f := range fields {
			writeIndent(w, depth+1)
			key, _ := json.Marshal(f.Key)
			w.Write(key)
			w.WriteString(": ")
			if err := encodeValue(w, f.Value, depth+1); err != nil {
				return err
			}
			if i < len(fields)-1 {
				w.WriteByte(',')
			}
			w.WriteByte('\n')
		}
		writeIndent(w, depth)
		_, err := w.WriteString("}")
		return err
	}
	return fmt.Errorf("cannot encode %T", v)
}

func writeIndent(w *bufio.Writer, depth int) {
	w.WriteString(strings.Repeat("  ", depth))
}
