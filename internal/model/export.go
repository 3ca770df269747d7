package model

// AuditExport is the top-level JSON structure for audit-log export.
// ExportedAt is an RFC3339 string, same as AuditRow.Timestamp.
type AuditExport struct {
	SheetID    string     `json:"sheet_id"`
	ExportedAt string     `json:"exported_at"`
	RowCount   int        `json:"row_count"`
	Rows       []AuditRow `json:"rows"`
}
