package helpers

import (
	"bytes"
	"fmt"
	"unicode"

	"bitbucket.org/colegioandes/backend/config"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func AddFileToS3(ctx *config.AppContext, buffer *bytes.Buffer, path string) (string, error) {
	uploader := s3manager.NewUploader(ctx.AwsS3)

	_, err := uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(ctx.Config.AwsS3.S3Bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(buffer.Bytes()),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", ctx.Config.AwsS3.S3Url, path), nil
}

// RemoveAccents strips diacritics. wkhtmltopdf chokes on some accented glyphs
// with the fonts shipped in the base image.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	output, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return output
}
