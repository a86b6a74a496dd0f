// Package storage legt ETL-Snapshots und Datenbank-Backups in einem
// S3-kompatiblen Objektspeicher ab.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"red-subcontinent/config"
)

// ErrNotConfigured wird geliefert, wenn kein Bucket konfiguriert ist.
var ErrNotConfigured = errors.New("object storage not configured")

// Settings beschreibt den Zugang zu einem S3-kompatiblen Endpunkt.
type Settings struct {
	Endpoint string
	Region   string
	Key      string
	Secret   string
}

// ObjectAPI ist der Ausschnitt des S3-Clients, den Archive nutzt.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client mit statischen Zugangsdaten. Ein
// eigener Endpunkt wird im Path-Style angesprochen.
func NewS3Client(ctx context.Context, s Settings) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.Key, s.Secret, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Object ist ein Eintrag im Archiv.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Archive schreibt Objekte unter einem festen Präfix in einen Bucket.
type Archive struct {
	client   ObjectAPI
	bucket   string
	prefix   string
	endpoint string
}

func NewArchive(client ObjectAPI, bucket, prefix, endpoint string) *Archive {
	return &Archive{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// FromConfig baut das ETL-Archiv aus der Anwendungskonfiguration.
func FromConfig(ctx context.Context, cfg *config.Config) (*Archive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, ErrNotConfigured
	}
	client, err := NewS3Client(ctx, Settings{
		Endpoint: cfg.S3Endpoint,
		Region:   cfg.S3Region,
		Key:      cfg.S3Key,
		Secret:   cfg.S3Secret,
	})
	if err != nil {
		return nil, err
	}
	return NewArchive(client, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint), nil
}

func (a *Archive) fullKey(key string) string {
	if a.prefix == "" {
		return key
	}
	return path.Join(a.prefix, key)
}

// Upload lädt body unter key hoch und gibt den Link zurück.
func (a *Archive) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	full := a.fullKey(key)
	in := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(full),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := a.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, full, err)
	}
	if a.endpoint == "" {
		return fmt.Sprintf("s3://%s/%s", a.bucket, full), nil
	}
	return fmt.Sprintf("%s/%s/%s", a.endpoint, a.bucket, full), nil
}

// List liefert alle Objekte unter prefix (relativ zum Archivpräfix), neueste zuerst.
func (a *Archive) List(ctx context.Context, prefix string) ([]Object, error) {
	full := a.fullKey(prefix)
	if prefix == "" && a.prefix != "" {
		full = a.prefix + "/"
	}
	in := &s3.ListObjectsV2Input{Bucket: aws.String(a.bucket)}
	if full != "" {
		in.Prefix = aws.String(full)
	}
	var out []Object
	pages := s3.NewListObjectsV2Paginator(a.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", a.bucket, full, err)
		}
		for _, obj := range page.Contents {
			o := Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

// Delete entfernt ein Objekt über seinen vollständigen Schlüssel.
func (a *Archive) Delete(ctx context.Context, fullKey string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", a.bucket, fullKey, err)
	}
	return nil
}

// Rotate behält die keep neuesten Objekte unter prefix und löscht den Rest.
// Fehlgeschlagene Löschungen werden gesammelt, die übrigen trotzdem versucht.
func (a *Archive) Rotate(ctx context.Context, prefix string, keep int) ([]string, error) {
	objs, err := a.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(objs) <= keep {
		return nil, nil
	}
	var (
		deleted []string
		errs    []error
	)
	for _, obj := range objs[keep:] {
		if err := a.Delete(ctx, obj.Key); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, obj.Key)
	}
	return deleted, errors.Join(errs...)
}
