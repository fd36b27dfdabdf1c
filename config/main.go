package config

import (
	"fmt"
	"strconv"

	"bitbucket.org/colegioandes/backend/conekta"
	db "bitbucket.org/colegioandes/backend/db"
	"bitbucket.org/colegioandes/backend/ledger"
	"bitbucket.org/colegioandes/backend/webhook"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	stripeclient "github.com/stripe/stripe-go/v80/client"
	"gopkg.in/gomail.v2"
)

type Configuration struct {
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT,default=3001"`
	Timeout     int    `env:"TIMEOUT,default=1"`
	DB          db.Storage
	SQL         database
	AwsSMTP     awsSMTP
	AwsS3       awsS3
	Stripe      stripeConf
	Conekta     conektaConf
	Mail        mail
	Environment string `env:"ENVIRONMENT,default=development"`
	AppName     string `env:"APP_NAME,default=app"`
}

type database struct {
	URL            string `env:"DATA_BASE_URL,required"`
	Name           string `env:"DATA_BASE_NAME,required"`
	User           string `env:"DATA_BASE_USER,required"`
	Port           int    `env:"DATA_BASE_PORT,default=3306"`
	Password       string `env:"DATA_BASE_PASSWORD,required"`
	OpenConnection int    `env:"DATA_BASE_MAX_OPEN_CONNECTION,default=5"`
}

type awsSMTP struct {
	SMTPHost     string `env:"SMTP_HOST,required"`
	SMTPPort     int    `env:"SMTP_PORT,required"`
	SMTPUser     string `env:"SMTP_USER,required"`
	SMTPPassword string `env:"SMTP_PASSWORD,required"`
}

type stripeConf struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type conektaConf struct {
	BaseURL            string `env:"CONEKTA_BASEURL"`
	PrivateKey         string `env:"CONEKTA_PRIVATE_KEY"`
	WebhookSecret      string `env:"CONEKTA_WEBHOOK_SECRET"`
	VoucherExpiryHours int    `env:"CONEKTA_VOUCHER_EXPIRY_HOURS,default=72"`
}

type awsS3 struct {
	S3Region      string `env:"S3_REGION,required"`
	S3Bucket      string `env:"S3_BUCKET,required"`
	S3Url         string `env:"S3_URL,required"`
	S3PathReceipt string `env:"S3_PATH_RECEIPT,default=receipt"`
}

type mail struct {
	PaymentSuccess mailPaymentSuccess
	PaymentRefund  mailPaymentRefund
	NameFrom       string `env:"MAIL_NAME_FROM"`
	EmailFrom      string `env:"MAIL_EMAIL_FROM"`
	Folder         string `env:"MAIL_FOLDER"`
	Path           string `env:"MAIL_PATH"`
}

type mailPaymentSuccess struct {
	Subject  string `env:"MAIL_PAYMENT_SUCCESS_SUBJECT"`
	Template string `env:"MAIL_PAYMENT_SUCCESS_TEMPLATE"`
	FileName string `env:"MAIL_PAYMENT_SUCCESS_FILENAME"`
}

type mailPaymentRefund struct {
	Subject  string `env:"MAIL_PAYMENT_REFUND_SUBJECT"`
	Template string `env:"MAIL_PAYMENT_REFUND_TEMPLATE"`
}

type AppContext struct {
	Config   Configuration
	SQLConn  *sqlx.DB
	DB       db.Storage
	AwsSMTP  *gomail.Dialer
	AwsS3    *session.Session
	Stripe   *stripeclient.API
	Conekta  *conekta.Client
	Ledger   *ledger.Engine
	Webhooks *webhook.Processor
}

func CreateConnectionSQL(conf database) (*sqlx.DB, error) {
	conn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", conf.User, conf.Password, conf.URL, strconv.Itoa(conf.Port), conf.Name)
	connection, err := sqlx.Connect("mysql", conn)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func CreateNewConnectionSMTP(conf awsSMTP) *gomail.Dialer {
	conn := gomail.NewDialer(conf.SMTPHost, conf.SMTPPort, conf.SMTPUser, conf.SMTPPassword)
	return conn
}

func CreateStripeIntegration(conf stripeConf) *stripeclient.API {
	api := &stripeclient.API{}
	api.Init(conf.SecretKey, nil)

	return api
}

func CreateConektaIntegration(conf conektaConf) *conekta.Client {
	return conekta.NewClient(conf.BaseURL, conf.PrivateKey, conf.WebhookSecret)
}

func CreateNewSessionS3(conf awsS3) (*session.Session, error) {
	s, err := session.NewSession(&aws.Config{Region: aws.String(conf.S3Region)})
	return s, err
}

var logger *log.Entry

func SetLogger(newLogger *log.Entry) {
	logger = newLogger
}

func GetLogger() *log.Entry {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return logger
}
