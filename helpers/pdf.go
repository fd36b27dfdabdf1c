package helpers

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"log"
	"strings"
	"text/template"

	"bitbucket.org/colegioandes/backend/models"
	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	qrcode "github.com/skip2/go-qrcode"
)

type RequestPdf struct {
	bodies []string
}

func (r *RequestPdf) ParseTemplate(templateFileName string, data interface{}) error {
	t, err := template.ParseFiles(templateFileName)
	if err != nil {
		return err
	}
	buf := new(bytes.Buffer)
	if err = t.Execute(buf, data); err != nil {
		return err
	}
	r.bodies = append(r.bodies, buf.String())
	return nil
}

const (
	ConstHTMLNewPage = `
	<div class="new-page"></div>
	`
)

func (r *RequestPdf) GeneratePDF() (*bytes.Buffer, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		log.Fatal(err)
	}

	pdfg.AddPage(wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(strings.Join(r.bodies, ConstHTMLNewPage)))))

	err = pdfg.Create()
	if err != nil {
		return nil, err
	}

	return pdfg.Buffer(), nil
}

// GenerateReceiptPDF renders the printable payment receipt with a QR code
// pointing back at the transaction id.
func GenerateReceiptPDF(receipt *models.ChargeReceipt) (*bytes.Buffer, error) {
	r := RequestPdf{}

	img, err := qrcode.New(receipt.Payment.TransactionID, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	base64, err := EncodeImage(img.Image(256))
	if err != nil {
		return nil, err
	}

	data := models.ReceiptPDFHTML{
		ID:            receipt.Payment.ID,
		Date:          receipt.Payment.Created.Format("02-01-2006"),
		Amount:        receipt.Payment.Amount.StringFixed(2),
		ReceiptNumber: receipt.Payment.ReceiptNumber,
		TransactionID: receipt.Payment.TransactionID,
		Image:         base64,
	}
	if receipt.Enrollment != nil {
		if receipt.Enrollment.Student != nil {
			data.Firstname = RemoveAccents(receipt.Enrollment.Student.Firstname)
			data.Lastname = receipt.Enrollment.Student.Lastname
		}
		if receipt.Enrollment.Course != nil {
			data.CourseName = receipt.Enrollment.Course.Name
		}
	}

	if err := r.ParseTemplate("./templates/pdf/receipt.html", data); err != nil {
		return nil, err
	}

	mem, err := r.GeneratePDF()
	if err != nil {
		return nil, err
	}

	return mem, nil
}

func EncodeImage(m image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
