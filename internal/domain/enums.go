package domain

// Source identifies where an extraction result came from.
type Source string

const (
	SourceXLSX  Source = "xlsx"
	SourcePDF   Source = "pdf"
	SourceAI    Source = "ai"
	SourceMulti Source = "multi"
)

// Mode identifies which extraction path produced a result.
type Mode string

const (
	ModeHeuristic Mode = "heuristic" // rule-based extraction only
	ModeAI        Mode = "ai"        // AI extraction from scratch
	ModeAIRefine  Mode = "ai_refine" // heuristic items corrected by AI
	ModeNone      Mode = "none"      // nothing usable extracted
)

// FileType represents the accepted upload types.
type FileType string

const (
	FileTypeXLS  FileType = "xls"
	FileTypeXLSX FileType = "xlsx"
	FileTypePDF  FileType = "pdf"
)

// AllowedExtensions maps lowercase file extensions (without dot) to FileType.
// Anything else is a hard rejection.
var AllowedExtensions = map[string]FileType{
	"xls":  FileTypeXLS,
	"xlsx": FileTypeXLSX,
	"pdf":  FileTypePDF,
}
