package tabular

// LooksLikeHTML reports whether the bytes start an HTML document rather
// than a real workbook. Several marketplaces export ".xls" downloads that
// are actually HTML tables, so the first non-whitespace byte (after an
// optional UTF-8 BOM) being '<' is the deciding signal.
func LooksLikeHTML(data []byte) bool {
	i := 0
	for i < len(data) && (data[i] == ' ' || data[i] == '\n' || data[i] == '\r' || data[i] == '\t') {
		i++
	}
	if i+3 < len(data) && data[i] == 0xef && data[i+1] == 0xbb && data[i+2] == 0xbf {
		i += 3
	}
	return i < len(data) && data[i] == '<'
}
