package constants

// PlausibilityStatus is the heuristic quality tag attached to every extracted row.
type PlausibilityStatus string

const (
	PlausibilityOK          PlausibilityStatus = "OK"
	PlausibilitySuspicious  PlausibilityStatus = "Suspicious"
	PlausibilityImplausible PlausibilityStatus = "Implausible"
)

// ExtractionMethod records which path produced the rows of a document.
type ExtractionMethod string

const (
	MethodText     ExtractionMethod = "text"
	MethodImageOCR ExtractionMethod = "image-ocr"
)

// Outcome is the terminal routing decision for one input file.
type Outcome string

const (
	OutcomeArchived         Outcome = "archived"
	OutcomeNonInvoice       Outcome = "non-invoice"
	OutcomeProblem          Outcome = "problem"
	OutcomeAlreadyProcessed Outcome = "already-processed"
)

// Rename prefixes for files routed to the problem folder.
const (
	PrefixUnreadable    = "unlesbar_"
	PrefixGatewayError  = "GPT_Fehler_"
	PrefixUnusableTable = "Tabelle_unbrauchbar_"
	PrefixCrashed       = "Abbruch_"
)
