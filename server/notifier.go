package server

import (
	"fmt"

	"bitbucket.org/colegioandes/backend/config"
	"bitbucket.org/colegioandes/backend/helpers"
	"bitbucket.org/colegioandes/backend/models"
)

// receiptNotifier mails the student after money moves on their enrollment.
// Completed payments get the receipt PDF attached and archived in S3.
type receiptNotifier struct {
	ctx *config.AppContext
}

func (n *receiptNotifier) PaymentCompleted(enrollment *models.Enrollment, payment *models.Payment) error {
	if enrollment == nil || enrollment.Student == nil || enrollment.Student.Email == "" {
		return nil
	}

	receipt := &models.ChargeReceipt{
		Payment:    payment,
		Enrollment: enrollment,
	}

	pdfBuffer, err := helpers.GenerateReceiptPDF(receipt)
	if err != nil {
		return err
	}

	if _, err := helpers.AddFileToS3(n.ctx, pdfBuffer, fmt.Sprintf("%s/%d.pdf", n.ctx.Config.AwsS3.S3PathReceipt, payment.ID)); err != nil {
		return err
	}

	courseName := ""
	if enrollment.Course != nil {
		courseName = enrollment.Course.Name
	}

	ed := &helpers.EmailData{
		EmailTo:      enrollment.Student.Email,
		NameTo:       enrollment.Student.Firstname,
		EmailFrom:    n.ctx.Config.Mail.EmailFrom,
		NameFrom:     n.ctx.Config.Mail.NameFrom,
		Subject:      n.ctx.Config.Mail.PaymentSuccess.Subject,
		TemplatePath: fmt.Sprintf("%s%s/%s", n.ctx.Config.Mail.Folder, n.ctx.Config.Mail.Path, n.ctx.Config.Mail.PaymentSuccess.Template),
		FileName:     n.ctx.Config.Mail.PaymentSuccess.FileName,
		FileContent:  pdfBuffer.Bytes(),
		AwsSMTP:      n.ctx.AwsSMTP,
	}

	return ed.SendEmail(models.PaymentReceiptHTML{
		Firstname:     enrollment.Student.Firstname,
		Lastname:      enrollment.Student.Lastname,
		CourseName:    courseName,
		PaymentMethod: payment.Method,
		Amount:        payment.Amount.StringFixed(2),
		ReceiptNumber: payment.ReceiptNumber,
		TransactionID: payment.TransactionID,
	})
}

func (n *receiptNotifier) PaymentRefunded(enrollment *models.Enrollment, payment *models.Payment) error {
	if enrollment == nil || enrollment.Student == nil || enrollment.Student.Email == "" {
		return nil
	}

	courseName := ""
	if enrollment.Course != nil {
		courseName = enrollment.Course.Name
	}

	refundAmount := payment.Amount
	if payment.RefundAmount != nil {
		refundAmount = *payment.RefundAmount
	}

	ed := &helpers.EmailData{
		EmailTo:      enrollment.Student.Email,
		NameTo:       enrollment.Student.Firstname,
		EmailFrom:    n.ctx.Config.Mail.EmailFrom,
		NameFrom:     n.ctx.Config.Mail.NameFrom,
		Subject:      n.ctx.Config.Mail.PaymentRefund.Subject,
		TemplatePath: fmt.Sprintf("%s%s/%s", n.ctx.Config.Mail.Folder, n.ctx.Config.Mail.Path, n.ctx.Config.Mail.PaymentRefund.Template),
		AwsSMTP:      n.ctx.AwsSMTP,
	}

	return ed.SendEmail(models.PaymentRefundHTML{
		Firstname:    enrollment.Student.Firstname,
		Lastname:     enrollment.Student.Lastname,
		CourseName:   courseName,
		RefundAmount: refundAmount.StringFixed(2),
		RefundReason: payment.RefundReason,
	})
}
