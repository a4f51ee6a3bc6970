package sloc

func init() {
	cFamily := func(name, quotes, multiline, raw string) Dialect {
		return Dialect{
			Name:         name,
			LineComments: []string{"//"},
			BlockOpen:    "/*",
			BlockClose:   "*/",
			Quotes:       quotes,
			Multiline:    multiline,
			Raw:          raw,
		}
	}

	register(cFamily("javascript", "'\"`", "`", ""))
	register(cFamily("typescript", "'\"`", "`", ""))
	register(cFamily("go", "'\"`", "`", "`"))
	register(cFamily("java", "'\"", "", ""))

	// 'a is a lifetime, not a char literal.
	rust := cFamily("rust", "\"", "\"", "")
	rust.NestedBlocks = true
	register(rust)

	register(Dialect{
		Name:       "css",
		BlockOpen:  "/*",
		BlockClose: "*/",
		Quotes:     "'\"",
	})
	register(Dialect{
		Name:         "python",
		LineComments: []string{"#"},
		Quotes:       "'\"",
		TripleQuotes: true,
	})
	register(Dialect{
		Name:       "html",
		BlockOpen:  "<!--",
		BlockClose: "-->",
	})
	register(Dialect{
		Name:   "json",
		Quotes: "\"",
	})
}
