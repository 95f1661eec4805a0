package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/qsolog/internal/server/config"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:                   "us-east-1",
		S3RootUser:                 "minioadmin",
		S3RootPassword:             "minioadmin",
		S3BaseEndpoint:             "http://127.0.0.1:9000",
		S3Bucket:                   "qsolog",
		ArchiveURLValidityDuration: 10 * time.Minute,
	}
}

func stubClientFactories(t *testing.T) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := putObject
	origPresign := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		putObject = origPut
		presignGetObject = origPresign
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	stubClientFactories(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Fatalf("credentials provider not applied")
		}
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	st, err := NewS3Store(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewS3Store err: %v", err)
	}
	if st.pc == nil || st.client == nil {
		t.Fatalf("clients not initialised")
	}
	if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("BaseEndpoint mismatch: %v", opts.BaseEndpoint)
	}
	if !opts.UsePathStyle {
		t.Fatalf("path-style addressing expected")
	}
}

func TestNewS3Store_LoadError(t *testing.T) {
	stubClientFactories(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	if _, err := NewS3Store(context.Background(), testConfig()); err == nil || !strings.Contains(err.Error(), "load-fail") {
		t.Fatalf("expected load-fail, got %v", err)
	}
}

func TestPut_PassesInput(t *testing.T) {
	stubClientFactories(t)

	var got *s3.PutObjectInput
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		b, _ := io.ReadAll(in.Body)
		if string(b) != "payload" {
			t.Fatalf("body mismatch: %q", b)
		}
		return &s3.PutObjectOutput{}, nil
	}

	st, err := NewS3Store(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewS3Store err: %v", err)
	}
	if err := st.Put(context.Background(), "exports/u/x.adi.zst", strings.NewReader("payload"), 7, "application/zstd"); err != nil {
		t.Fatalf("Put err: %v", err)
	}
	if *got.Bucket != "qsolog" || *got.Key != "exports/u/x.adi.zst" || *got.ContentLength != 7 || *got.ContentType != "application/zstd" {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestPut_Error(t *testing.T) {
	stubClientFactories(t)
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("denied")
	}

	st, _ := NewS3Store(context.Background(), testConfig())
	err := st.Put(context.Background(), "k", strings.NewReader(""), 0, "text/plain")
	if err == nil || !strings.Contains(err.Error(), "put object k: denied") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestPresignGet(t *testing.T) {
	stubClientFactories(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		if po.Expires != 10*time.Minute {
			t.Fatalf("expires mismatch: %v", po.Expires)
		}
		if in.ResponseContentDisposition == nil || *in.ResponseContentDisposition != `attachment; filename=qsolog.adi.zst` {
			t.Fatalf("disposition mismatch: %v", in.ResponseContentDisposition)
		}
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/" + *in.Key}, nil
	}

	st, _ := NewS3Store(context.Background(), testConfig())
	before := time.Now()
	url, exp, err := st.PresignGet(context.Background(), "k1", "qsolog.adi.zst")
	if err != nil {
		t.Fatalf("PresignGet err: %v", err)
	}
	if url != "https://s3.local/k1" {
		t.Fatalf("url mismatch: %q", url)
	}
	if exp.Before(before.Add(10 * time.Minute)) {
		t.Fatalf("expiry too early: %v", exp)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign-fail")
	}
	if _, _, err := st.PresignGet(context.Background(), "k1", ""); err == nil {
		t.Fatalf("expected error")
	}
}
