package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"franchise-billing/internal/config"
	"franchise-billing/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

const uploadTimeout = 30 * time.Second

// ObjectPutter is the slice of the S3 API the archive needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// InvoiceArchive copies generated invoice PDFs to an S3 compatible bucket
// (AWS S3 or Cloudflare R2).
type InvoiceArchive struct {
	client ObjectPutter
	bucket string
	log    *logrus.Entry
	wg     sync.WaitGroup
}

// NewInvoiceArchive returns nil when storage is disabled
func NewInvoiceArchive(ctx context.Context, cfg *config.Config) (*InvoiceArchive, error) {
	sc := cfg.Storage
	if !sc.Enabled || sc.Bucket == "" {
		return nil, nil
	}
	if sc.AccessKey == "" || sc.SecretKey == "" {
		return nil, errors.New("storage access key and secret key are required")
	}
	region := sc.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			sc.AccessKey,
			sc.SecretKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure object storage: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewInvoiceArchiveWithClient(client, sc.Bucket), nil
}

func NewInvoiceArchiveWithClient(client ObjectPutter, bucket string) *InvoiceArchive {
	return &InvoiceArchive{client: client, bucket: bucket, log: logger.For("storage")}
}

// InvoiceKey is the object key of an archived invoice
func InvoiceKey(franchiseID int64, filename string) string {
	return fmt.Sprintf("invoices/%d/%s", franchiseID, filename)
}

// Put uploads one invoice and blocks until done
func (a *InvoiceArchive) Put(ctx context.Context, franchiseID int64, filename string, pdf []byte) error {
	key := InvoiceKey(franchiseID, filename)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// ArchiveAsync uploads in the background. Failures are logged only; the
// caller has already served the PDF.
func (a *InvoiceArchive) ArchiveAsync(franchiseID int64, filename string, pdf []byte) {
	if a == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()

		fields := logrus.Fields{"franchise_id": franchiseID, "file": filename, "bytes": len(pdf)}
		if err := a.Put(ctx, franchiseID, filename, pdf); err != nil {
			a.log.WithFields(fields).WithError(err).Warn("invoice archive failed")
			return
		}
		a.log.WithFields(fields).Info("invoice archived")
	}()
}

// Wait blocks until in-flight uploads finish
func (a *InvoiceArchive) Wait() {
	if a != nil {
		a.wg.Wait()
	}
}
