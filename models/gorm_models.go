package models

import (
	"time"

	"gorm.io/gorm"
)

// GORM-compatible models with proper tags

// QuoteGorm represents the quotes table with GORM tags
type QuoteGorm struct {
	ID                   uint           `gorm:"primaryKey;column:id" json:"id"`
	QuoteNumber          string         `gorm:"column:quote_number;uniqueIndex;not null" json:"quote_number"`
	CustomerName         string         `gorm:"column:customer_name;not null" json:"customer_name"`
	Currency             string         `gorm:"column:currency;default:'GBP'" json:"currency"`
	CreatedBy            int            `gorm:"column:created_by;not null" json:"created_by"`
	ActiveVersionID      *uint          `gorm:"column:active_version_id" json:"active_version_id,omitempty"`
	GroupDescription     GroupList      `gorm:"column:group_description;type:jsonb" json:"group_description"`
	SortGroupDescription SortSpec       `gorm:"column:sort_group_description;type:jsonb" json:"sort_group_description,omitempty"`
	SubmittedAt          *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt            time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for QuoteGorm
func (QuoteGorm) TableName() string {
	return "quotes"
}

// QuoteVersionGorm represents the quote_versions table with GORM tags
type QuoteVersionGorm struct {
	ID                   uint      `gorm:"primaryKey;column:id" json:"id"`
	QuoteID              uint      `gorm:"column:quote_id;not null;index" json:"quote_id"`
	VersionCode          string    `gorm:"column:version_code;not null" json:"version_code"`
	CreatedBy            int       `gorm:"column:created_by;not null" json:"created_by"`
	GroupDescription     GroupList `gorm:"column:group_description;type:jsonb" json:"group_description"`
	SortGroupDescription SortSpec  `gorm:"column:sort_group_description;type:jsonb" json:"sort_group_description,omitempty"`
	CreatedAt            time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for QuoteVersionGorm
func (QuoteVersionGorm) TableName() string {
	return "quote_versions"
}

// MappedRowGorm represents the mapped_rows table with GORM tags.
// VersionID is null for rows belonging to the base quote state.
type MappedRowGorm struct {
	ID              string    `gorm:"primaryKey;column:id;type:uuid" json:"id"`
	QuoteID         uint      `gorm:"column:quote_id;not null;index" json:"quote_id"`
	VersionID       *uint     `gorm:"column:version_id;index" json:"version_id,omitempty"`
	ReplicatedRowID *string   `gorm:"column:replicated_row_id;type:uuid;index" json:"replicated_row_id,omitempty"`
	ProductNo       string    `gorm:"column:product_no" json:"product_no"`
	Description     string    `gorm:"column:description" json:"description"`
	SerialNo        string    `gorm:"column:serial_no" json:"serial_no"`
	Qty             int       `gorm:"column:qty;default:1" json:"qty"`
	Price           float64   `gorm:"column:price;type:numeric(12,2)" json:"price"`
	CreatedAt       time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for MappedRowGorm
func (MappedRowGorm) TableName() string {
	return "mapped_rows"
}

// UserGorm represents the users table with GORM tags
type UserGorm struct {
	ID          uint           `gorm:"primaryKey;column:id" json:"id"`
	EmployeeId  string         `gorm:"column:employee_id;uniqueIndex" json:"employee_id"`
	Email       string         `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"column:password;not null" json:"password"`
	FirstName   string         `gorm:"column:first_name;not null" json:"first_name"`
	LastName    string         `gorm:"column:last_name" json:"last_name"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
	FirstAccess *time.Time     `gorm:"column:first_access" json:"first_access,omitempty"`
	LastAccess  *time.Time     `gorm:"column:last_access" json:"last_access,omitempty"`
	IsAdmin     bool           `gorm:"column:is_admin;default:false" json:"is_admin"`
	Country     string         `gorm:"column:country" json:"country"`
	PhoneNo     string         `gorm:"column:phone_no" json:"phone_no"`
	Suspended   bool           `gorm:"column:suspended;default:false" json:"suspended"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for UserGorm
func (UserGorm) TableName() string {
	return "users"
}

// SessionGorm represents the session table with GORM tags
type SessionGorm struct {
	ID                    uint       `gorm:"primaryKey;column:id" json:"id"`
	UserID                int        `gorm:"column:user_id;not null" json:"user_id"`
	SessionID             string     `gorm:"column:session_id;uniqueIndex;not null" json:"session_id"`
	HostName              string     `gorm:"column:host_name" json:"host_name"`
	IPAddress             string     `gorm:"column:ip_address" json:"ip_address"`
	Timestamp             time.Time  `gorm:"column:timestp;not null" json:"timestp"`
	ExpiresAt             time.Time  `gorm:"column:expires_at;not null" json:"expires_at"`
	RefreshToken          *string    `gorm:"column:refresh_token" json:"-"`
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at" json:"-"`
}

// TableName specifies the table name for SessionGorm
func (SessionGorm) TableName() string {
	return "session"
}

// ActivityLogGorm represents the activity_logs table with GORM tags
type ActivityLogGorm struct {
	ID           uint      `gorm:"primaryKey;column:id" json:"id"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UserName     string    `gorm:"column:user_name" json:"user_name"`
	HostName     string    `gorm:"column:host_name" json:"host_name"`
	EventContext string    `gorm:"column:event_context" json:"event_context"`
	IPAddress    string    `gorm:"column:ip_address" json:"ip_address"`
	Description  string    `gorm:"column:description" json:"description"`
	EventName    string    `gorm:"column:event_name" json:"event_name"`
	QuoteID      int       `gorm:"column:quote_id;index" json:"quote_id"`
	VersionID    *int      `gorm:"column:version_id" json:"version_id,omitempty"`
}

// TableName specifies the table name for ActivityLogGorm
func (ActivityLogGorm) TableName() string {
	return "activity_logs"
}
