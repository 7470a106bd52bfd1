package outcome

import "testing"

func TestAcceptCarriesValue(t *testing.T) {
	result := Accept(42)
	if !result.Accepted() {
		t.Fatal("expected accepted outcome")
	}
	if result.Value != 42 {
		t.Fatalf("value = %d, want 42", result.Value)
	}
}

func TestRejectCopiesRejections(t *testing.T) {
	rejections := []Rejection{
		{Code: "A", Message: "first"},
		{Code: "B", Message: "second"},
	}
	result := Reject[int](rejections...)
	rejections[0].Message = "mutated"

	if result.Accepted() {
		t.Fatal("expected rejected outcome")
	}
	if got := result.Message(); got != "first; second" {
		t.Fatalf("message = %q, want %q", got, "first; second")
	}
}
