package constants

import "strings"

// AllowedExtensions holds the file extensions picked up from the input folder.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// RunTimestampLayout formats the run timestamp used in folder and artifact names.
const RunTimestampLayout = "20060102_1504"

// Default folder and artifact names.
const (
	DefaultInputDirName       = "zu_verarbeiten"
	ArchivedDirSuffix         = "_verarbeitet"
	NonInvoiceDirSuffix       = "_nicht_rechnung"
	ProblemDirSuffix          = "_problemrechnungen"
	AlreadyProcessedDirSuffix = "_bereits_verarbeitet"
	DefaultLedgerFile         = "verarbeitete_dateien.xlsx"
	DefaultUnitMappingFile    = "mein_mapping.xlsx"
	DefaultErrorLogFile       = "fehlerprotokoll.txt"
	BatchFilePrefix           = "artikelpositionen_ki_batch_"
	BatchFileGlob             = "artikelpositionen_ki_batch_*.xlsx"
	FinalFilePrefix           = "artikelpositionen_ki_GESAMT_"
	CrashBackupPrefix         = "backup_abbruch_"
	CategoryLogPrefix         = "kategorielog_"
	CategoryLogGlob           = "kategorielog_*.xlsx"
	UnknownUnitsReportPrefix  = "einheiten_log_"
	SpreadsheetExt            = ".xlsx"
)
