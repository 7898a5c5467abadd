package models

// AuditLog records user mutations (manual edits, imports, applied review
// suggestions) so balance changes can be traced back to their cause.
type AuditLog struct {
	Base
	UserID       string `gorm:"size:64;not null;index" json:"user_id"`
	Action       string `gorm:"size:64;not null" json:"action"`
	ResourceType string `gorm:"size:32;not null" json:"resource_type"`
	ResourceID   string `gorm:"size:64" json:"resource_id"`
	IPAddress    string `gorm:"size:64" json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
