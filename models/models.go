package models

import (
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type User struct {
	ID          int       `json:"id" example:"1"`
	EmployeeId  string    `json:"employee_id" example:"EMP001"`
	Email       string    `json:"email" example:"user@example.com"`
	Password    string    `json:"password" example:""`
	FirstName   string    `json:"first_name" example:"John"`
	LastName    string    `json:"last_name" example:"Doe"`
	CreatedAt   time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	FirstAccess time.Time `json:"first_access,omitempty" example:"2024-01-15T10:30:00Z"`
	LastAccess  time.Time `json:"last_access,omitempty" example:"2024-01-15T10:30:00Z"`
	IsAdmin     bool      `json:"is_admin" example:"false"`
	Country     string    `json:"country" example:"United Kingdom"`
	PhoneNo     string    `json:"phone_no" example:"9876543210"`
	Suspended   bool      `json:"suspended" example:"false"`
}

type Session struct {
	UserID                int       `json:"user_id" example:"1"`
	SessionID             string    `json:"session_id" example:""`
	HostName              string    `json:"host_name" example:"workstation-01"`
	IPAddress             string    `json:"ip_address" example:"192.168.1.1"`
	Timestamp             time.Time `json:"timestp" example:"2024-01-15T10:30:00Z"`
	ExpiresAt             time.Time `json:"expires_at" example:"2024-01-16T10:30:00Z"`
	RefreshToken          string    `json:"refresh_token,omitempty" example:""`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at,omitempty" example:"2024-01-30T10:30:00Z"`
}

type ActivityLog struct {
	ID           int       `json:"id" example:"1"`
	CreatedAt    time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UserName     string    `json:"user_name" example:"John Doe"`
	HostName     string    `json:"host_name" example:"workstation-01"`
	EventContext string    `json:"event_context" example:"Quote EQ-10023"`
	IPAddress    string    `json:"ip_address" example:"192.168.1.1"`
	Description  string    `json:"description" example:"group_description updated"`
	EventName    string    `json:"event_name" example:"updated"`
	QuoteID      int       `json:"quote_id" example:"1"`
	VersionID    int       `json:"version_id,omitempty" example:"3"`
}

// AuditEntry is a pending activity log record with the before/after diff
// of the attribute that changed.
type AuditEntry struct {
	QuoteID      int
	VersionID    int
	EventContext string
	EventName    string
	Attribute    string
	Before       string
	After        string
	UserName     string
	HostName     string
	IPAddress    string
}

// MappedRow is a single priced line belonging to one quote state.
// Rows are produced by the import endpoint and consumed read-only by the
// group mechanism except for membership bookkeeping.
type MappedRow struct {
	ID              string    `json:"id" example:"a9b2f3e0-1f44-4f52-9b70-2a1ce1c6d001"`
	QuoteID         int       `json:"quote_id" example:"1"`
	VersionID       int       `json:"version_id,omitempty" example:"3"`
	ReplicatedRowID string    `json:"replicated_row_id,omitempty" example:""`
	ProductNo       string    `json:"product_no" example:"P9B20A"`
	Description     string    `json:"description" example:"HPE 3Y FC NBD Exch SVC"`
	SerialNo        string    `json:"serial_no" example:"SGH019BCDE"`
	Qty             int       `json:"qty" example:"1"`
	Price           float64   `json:"price" example:"129.99"`
	CreatedAt       time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// GroupWithRows is the enriched read view: a group joined against its live
// rows with the count and price aggregates.
type GroupWithRows struct {
	RowsGroup
	Rows       []MappedRow `json:"rows"`
	TotalCount int         `json:"total_count" example:"2"`
	TotalPrice float64     `json:"total_price" example:"259.98"`
}

// EditableState is the resolved mutation target of a quote: either the base
// quote itself or its active version. Version == nil means the base quote
// is authoritative. WasForked is set only by a copy-on-write fork, telling
// callers that row ids from the prior state must be remapped.
type EditableState struct {
	Quote     *QuoteGorm
	Version   *QuoteVersionGorm
	WasForked bool
}

// StateID identifies the editable state for row queries and lock keys.
// Version rows carry the version id; base quote rows carry the quote id
// with a null version_id.
func (s *EditableState) StateID() int {
	if s.Version != nil {
		return int(s.Version.ID)
	}
	return int(s.Quote.ID)
}

// VersionID returns the version id, or 0 when the base quote is the target.
func (s *EditableState) VersionID() int {
	if s.Version != nil {
		return int(s.Version.ID)
	}
	return 0
}

func (s *EditableState) LockKey() string {
	return fmt.Sprintf("update-quote:%d", s.StateID())
}

// CreatorID is the owner of the targeted editable state, not necessarily
// the owner of the quote.
func (s *EditableState) CreatorID() int {
	if s.Version != nil {
		return s.Version.CreatedBy
	}
	return s.Quote.CreatedBy
}

func (s *EditableState) Groups() GroupList {
	if s.Version != nil {
		return s.Version.GroupDescription
	}
	return s.Quote.GroupDescription
}

func (s *EditableState) SetGroups(groups GroupList) {
	if s.Version != nil {
		s.Version.GroupDescription = groups
		return
	}
	s.Quote.GroupDescription = groups
}

func (s *EditableState) Sort() SortSpec {
	if s.Version != nil {
		return s.Version.SortGroupDescription
	}
	return s.Quote.SortGroupDescription
}

func (s *EditableState) SetSort(spec SortSpec) {
	if s.Version != nil {
		s.Version.SortGroupDescription = spec
		return
	}
	s.Quote.SortGroupDescription = spec
}

// ---------- Request payloads ----------

type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:""`
}

type CreateUserRequest struct {
	EmployeeId string `json:"employee_id" example:"EMP001"`
	Email      string `json:"email" binding:"required" example:"user@example.com"`
	Password   string `json:"password" binding:"required" example:""`
	FirstName  string `json:"first_name" binding:"required" example:"John"`
	LastName   string `json:"last_name" example:"Doe"`
	IsAdmin    bool   `json:"is_admin" example:"false"`
	Country    string `json:"country" example:"United Kingdom"`
	PhoneNo    string `json:"phone_no" example:"9876543210"`
}

type CreateQuoteRequest struct {
	QuoteNumber  string `json:"quote_number" example:"EQ-10023"`
	CustomerName string `json:"customer_name" binding:"required" example:"Foster Wheeler Ltd"`
	Currency     string `json:"currency" example:"GBP"`
}

type UpdateQuoteRequest struct {
	CustomerName string `json:"customer_name" example:"Foster Wheeler Ltd"`
	Currency     string `json:"currency" example:"GBP"`
}

type CreateGroupRequest struct {
	Name       string   `json:"name" binding:"required" example:"Servers"`
	SearchText string   `json:"search_text" example:"srv"`
	RowsIDs    []string `json:"rows_ids"`
}

type UpdateGroupRequest struct {
	Name       string   `json:"name" binding:"required" example:"Servers"`
	SearchText string   `json:"search_text" example:"srv"`
	RowsIDs    []string `json:"rows_ids"`
}

type MoveGroupRowsRequest struct {
	FromGroupID string   `json:"from_group_id" binding:"required" example:"7f0b2e14-6c55-4b67-a1b1-0d6f8f1c9a10"`
	ToGroupID   string   `json:"to_group_id" binding:"required" example:"8c1d3f25-7d66-5c78-b2c2-1e7f9f2d0b21"`
	Rows        []string `json:"rows" binding:"required"`
}

type SelectGroupsRequest struct {
	GroupIDs []string `json:"group_ids" binding:"required"`
}

type SortGroupsRequest struct {
	Sort []SortColumn `json:"sort" binding:"required"`
}

type ImportRowsRequest struct {
	Rows []ImportRow `json:"rows" binding:"required"`
}

type ImportRow struct {
	ProductNo   string  `json:"product_no" example:"P9B20A"`
	Description string  `json:"description" example:"HPE 3Y FC NBD Exch SVC"`
	SerialNo    string  `json:"serial_no" example:"SGH019BCDE"`
	Qty         int     `json:"qty" example:"1"`
	Price       float64 `json:"price" example:"129.99"`
}

// EmailData carries template variables for the notification mailer.
type EmailData struct {
	RecipientName string
	QuoteNumber   string
	VersionCode   string
	ActorName     string
	ActionURL     string
}
