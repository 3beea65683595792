package options

import "testing"

func TestS3OptionsValidateDefaultsPass(t *testing.T) {
	if errs := NewS3Options().Validate(); len(errs) != 0 {
		t.Fatalf("expected default options to validate cleanly, got %v", errs)
	}
}

func TestS3OptionsValidateRequiresEndpointAndBucket(t *testing.T) {
	o := NewS3Options()
	o.Endpoint = ""
	o.BucketName = ""

	errs := o.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors for missing endpoint and bucket, got %v", errs)
	}
}

func TestS3OptionsValidateRequiresCredentials(t *testing.T) {
	o := NewS3Options()
	o.AccessKeyID = ""

	errs := o.Validate()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for missing access key, got %v", errs)
	}
}
