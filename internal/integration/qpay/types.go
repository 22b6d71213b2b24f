package qpay

// authResponse is the body of POST /auth/token.
type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// CreateInvoiceParams are the caller-supplied fields of an invoice.
type CreateInvoiceParams struct {
	SenderInvoiceNo string
	Description     string
	Amount          int64
}

// createInvoiceRequest is the wire form of POST /invoice.
type createInvoiceRequest struct {
	InvoiceCode         string `json:"invoice_code"`
	SenderInvoiceNo     string `json:"sender_invoice_no"`
	InvoiceReceiverCode string `json:"invoice_receiver_code"`
	InvoiceDescription  string `json:"invoice_description"`
	Amount              int64  `json:"amount"`
	CallbackURL         string `json:"callback_url"`
}

// DeepLink is one payer-app link returned with an invoice.
type DeepLink struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Invoice is a freshly minted gateway invoice.
type Invoice struct {
	InvoiceID string     `json:"invoice_id"`
	QRText    string     `json:"qr_text"`
	QRImage   string     `json:"qr_image"`
	URLs      []DeepLink `json:"urls"`
}

// checkPaymentRequest is the wire form of POST /payment/check.
type checkPaymentRequest struct {
	ObjectType string `json:"object_type"`
	ObjectID   string `json:"object_id"`
}

// PaymentRow is one settlement row of a payment check.
type PaymentRow struct {
	PaymentStatus string `json:"payment_status"`
	PaymentAmount int64  `json:"payment_amount,omitempty"`
}

// PaymentCheck is the gateway's answer to a settlement check.
type PaymentCheck struct {
	Count int          `json:"count"`
	Rows  []PaymentRow `json:"rows"`
}

// Settled reports whether any row confirms payment.
func (p *PaymentCheck) Settled() bool {
	if p == nil {
		return false
	}
	for _, row := range p.Rows {
		if row.PaymentStatus == paymentStatusPaid {
			return true
		}
	}
	return false
}
