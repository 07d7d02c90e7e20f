// Package domain defines the persistence models for the installment-sales
// entity graph. These types are mapped with GORM and are read-only to the
// notification core: rows are created and refreshed by the external data
// warehouse sync job, while this service only queries them (and flips the
// opt-in switches through the preferences API).
package domain

import "time"

// Sale represents one financed real-estate purchase contract. It is the root
// of the entity graph: amortization entries, payments, the arrears snapshot
// and up to six co-owner references all hang off its folio.
//
// Fields:
//   - Folio: unique contract number, primary key.
//   - Project / Stage: development and sub-phase; together they resolve the
//     StageConfig row that gates automated contact.
//   - Unit: the lot/unit label (e.g. "12 G-CM 3"); matched partially and
//     case-insensitively by the receipt worker.
//   - ClientName / Phone / Email: the primary buyer's display data as synced
//     from the CRM.
//   - FileStatus: lifecycle status of the sale file ("Cancelado" and
//     "Expirado" exclude a sale from receipt matching).
//   - ClientID1..ClientID6: optional co-owner references into clients.
type Sale struct {
	Folio      string `json:"folio"       gorm:"type:varchar(32);primaryKey"`
	Project    string `json:"project"     gorm:"type:varchar(128);index"`
	Stage      string `json:"stage"       gorm:"type:varchar(128);index"`
	Unit       string `json:"unit"        gorm:"type:varchar(64)"`
	ClientName string `json:"client_name" gorm:"type:varchar(255)"`
	Phone      string `json:"phone"       gorm:"type:varchar(32)"`
	Email      string `json:"email"       gorm:"type:varchar(255)"`
	ListPrice  float64 `json:"list_price"`
	FinalPrice float64 `json:"final_price"`
	Currency   string `json:"currency"    gorm:"type:varchar(8)"`
	FileStatus string `json:"file_status" gorm:"type:varchar(32);index"`

	ClientID1 string `json:"client_id_1" gorm:"type:varchar(32)"`
	ClientID2 string `json:"client_id_2" gorm:"type:varchar(32)"`
	ClientID3 string `json:"client_id_3" gorm:"type:varchar(32)"`
	ClientID4 string `json:"client_id_4" gorm:"type:varchar(32)"`
	ClientID5 string `json:"client_id_5" gorm:"type:varchar(32)"`
	ClientID6 string `json:"client_id_6" gorm:"type:varchar(32)"`
}

// TableName returns the database table name for Sale.
func (Sale) TableName() string { return "sales" }

// CoOwnerIDs returns the six co-owner slots in positional order. Empty
// strings mark unused slots.
func (s *Sale) CoOwnerIDs() [6]string {
	return [6]string{s.ClientID1, s.ClientID2, s.ClientID3, s.ClientID4, s.ClientID5, s.ClientID6}
}

// AmortizationEntry is one scheduled installment of a sale's payment plan.
// Entries are ordered by Number and DueDate; DueDate is stored as an ISO
// "YYYY-MM-DD" string so date predicates compare lexicographically, matching
// the warehouse export format.
type AmortizationEntry struct {
	ID        uint    `json:"-"          gorm:"primaryKey"`
	SaleFolio string  `json:"sale_folio" gorm:"type:varchar(32);not null;index:idx_amort_sale,priority:1"`
	Number    int     `json:"number"     gorm:"not null"`
	DueDate   string  `json:"due_date"   gorm:"type:char(10);not null;index:idx_amort_sale,priority:2"`
	Concept   string  `json:"concept"    gorm:"type:varchar(64)"`
	Capital   float64 `json:"capital"`
	Interest  float64 `json:"interest"`
	Total     float64 `json:"total"`
	Penalty   float64 `json:"penalty"`
}

// TableName returns the database table name for AmortizationEntry.
func (AmortizationEntry) TableName() string { return "amortization_entries" }

// PaymentRecord is the payment ledger row matched to an amortization entry by
// (sale folio, payment number). Status is "active" for a counted payment and
// "canceled" for a voided one; FileStatus "Liquidado" marks a settled file.
type PaymentRecord struct {
	ID            uint    `json:"-"              gorm:"primaryKey"`
	SaleFolio     string  `json:"sale_folio"     gorm:"type:varchar(32);not null;index:idx_pay_sale,priority:1"`
	PaymentNumber int     `json:"payment_number" gorm:"not null;index:idx_pay_sale,priority:2"`
	AmountDue     float64 `json:"amount_due"`
	AmountPaid    float64 `json:"amount_paid"`
	Status        string  `json:"status"      gorm:"type:varchar(16)"`
	FileStatus    string  `json:"file_status" gorm:"type:varchar(32)"`
}

// TableName returns the database table name for PaymentRecord.
func (PaymentRecord) TableName() string { return "payment_records" }

// Client is a person profile referenced by a co-owner slot.
type Client struct {
	ClientID   string `json:"client_id"   gorm:"type:varchar(32);primaryKey"`
	ClientName string `json:"client_name" gorm:"type:varchar(255)"`
	Address    string `json:"address"     gorm:"type:varchar(255)"`
	City       string `json:"city"        gorm:"type:varchar(128)"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// ClientManagementRecord holds the per-(sale, client) contact data and the
// four opt-in switches. The sync job materializes records with every switch
// enabled; afterwards only the preferences API mutates them.
type ClientManagementRecord struct {
	ID        uint   `json:"-"         gorm:"primaryKey"`
	SaleFolio string `json:"sale_folio" gorm:"type:varchar(32);not null;uniqueIndex:ux_mgmt_sale_client,priority:1"`
	ClientID  string `json:"client_id"  gorm:"type:varchar(32);not null;uniqueIndex:ux_mgmt_sale_client,priority:2"`
	Email     string `json:"email"      gorm:"type:varchar(255)"`
	Phone     string `json:"phone"      gorm:"type:varchar(32)"`

	AllowEmailBatch        bool `json:"allow_email_batch"         gorm:"not null"`
	AllowWhatsAppBatch     bool `json:"allow_whatsapp_batch"      gorm:"column:allow_whatsapp_batch;not null"`
	AllowEmailMarketing    bool `json:"allow_email_marketing"     gorm:"not null"`
	AllowWhatsAppMarketing bool `json:"allow_whatsapp_marketing"  gorm:"column:allow_whatsapp_marketing;not null"`
}

// TableName returns the database table name for ClientManagementRecord.
func (ClientManagementRecord) TableName() string { return "client_management" }

// StageConfig gates automated contact per (project, stage). Both flags must
// be on for a sale in that stage to be swept; TotalSales is a denormalized
// count maintained by the sync job.
type StageConfig struct {
	ID             uint   `json:"id"              gorm:"primaryKey"`
	Project        string `json:"project"         gorm:"type:varchar(128);not null;uniqueIndex:ux_stage_project,priority:1"`
	Stage          string `json:"stage"           gorm:"type:varchar(128);not null;uniqueIndex:ux_stage_project,priority:2"`
	ProjectEnabled bool   `json:"project_enabled" gorm:"not null"`
	StageEnabled   bool   `json:"stage_enabled"   gorm:"not null"`
	TotalSales     int    `json:"total_sales"`
}

// TableName returns the database table name for StageConfig.
func (StageConfig) TableName() string { return "stage_configs" }

// ArrearsSnapshot is the precomputed, authoritative per-sale arrears summary
// produced by the CRM. The tag resolver treats it as ground truth even when a
// line-level reconstruction from the amortization plan disagrees.
type ArrearsSnapshot struct {
	SaleFolio          string    `json:"sale_folio" gorm:"type:varchar(32);primaryKey"`
	OverduePeriods     int       `json:"overdue_periods"`
	OverdueNoPenalty   float64   `json:"overdue_no_penalty"`
	OverdueWithPenalty float64   `json:"overdue_with_penalty"`
	SyncedAt           time.Time `json:"synced_at"`
}

// TableName returns the database table name for ArrearsSnapshot.
func (ArrearsSnapshot) TableName() string { return "arrears_snapshots" }
