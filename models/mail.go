package models

type PaymentReceiptHTML struct {
	Firstname     string
	Lastname      string
	CourseName    string
	PaymentMethod string
	Amount        string
	ReceiptNumber string
	TransactionID string
}

type PaymentRefundHTML struct {
	Firstname    string
	Lastname     string
	CourseName   string
	RefundAmount string
	RefundReason string
}

type ReceiptPDFHTML struct {
	ID            int
	Firstname     string
	Lastname      string
	CourseName    string
	Date          string
	Amount        string
	ReceiptNumber string
	TransactionID string
	Image         string
}

type ReceiptPDF struct {
	URL string `json:"url"`
}
