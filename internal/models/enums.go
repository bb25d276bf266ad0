package models

type UserRole string

const (
	RoleTenant UserRole = "tenant"
	RoleOwner  UserRole = "owner"
	RoleAdmin  UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleTenant || r == RoleOwner || r == RoleAdmin
}

type UserStatus string

const (
	UserActive      UserStatus = "active"
	UserSuspended   UserStatus = "suspended"
	UserDeactivated UserStatus = "deactivated"
)

type ApartmentStatus string

const (
	ApartmentAvailable ApartmentStatus = "available"
	ApartmentOccupied  ApartmentStatus = "occupied"
	ApartmentUnlisted  ApartmentStatus = "unlisted"
)

func (s ApartmentStatus) Valid() bool {
	return s == ApartmentAvailable || s == ApartmentOccupied || s == ApartmentUnlisted
}

type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractTerminated ContractStatus = "terminated"
)

type BillingStatus string

const (
	BillingUnpaid  BillingStatus = "unpaid"
	BillingPartial BillingStatus = "partial"
	BillingPaid    BillingStatus = "paid"
	BillingOverdue BillingStatus = "overdue"
)

type SubBillStatus string

const (
	SubBillUnpaid  SubBillStatus = "unpaid"
	SubBillPartial SubBillStatus = "partial"
	SubBillPaid    SubBillStatus = "paid"
)

type PaymentMethod string

const (
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
	PaymentCash     PaymentMethod = "cash"
	PaymentCredit   PaymentMethod = "credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentTransfer, PaymentCard, PaymentCash, PaymentCredit:
		return true
	}
	return false
}

type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidWithdrawn BidStatus = "withdrawn"
)

type NotificationType string

const (
	NotificationNewBill         NotificationType = "new_bill"
	NotificationOverdueReminder NotificationType = "overdue_reminder"
	NotificationBidOutcome      NotificationType = "bid_outcome"
	NotificationPaymentReceived NotificationType = "payment_received"
	NotificationContractUpdated NotificationType = "contract_updated"
	NotificationGeneral         NotificationType = "general"
)

type FileKind string

const (
	FileImage        FileKind = "image"
	FilePDFBlueprint FileKind = "pdf_blueprint"
	FileVideo        FileKind = "video"
	FileDocument     FileKind = "document"
)

func (k FileKind) Valid() bool {
	switch k {
	case FileImage, FilePDFBlueprint, FileVideo, FileDocument:
		return true
	}
	return false
}
