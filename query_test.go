package sqlbus

import "testing"

func TestNewQueryClassifiesWritesByKeyword(t *testing.T) {
	cases := []struct {
		statement string
		want      QueryType
	}{
		{"SELECT max(runnum) FROM run", Read},
		{"INSERT INTO logging (message) VALUES ('x')", Write},
		{"UPDATE run SET runnum = 1", Write},
		{"DELETE FROM logging WHERE id = 1", Write},
	}
	for _, c := range cases {
		got := NewQuery("db", c.statement).Type
		if got != c.want {
			t.Errorf("classify(%q) = %v, want %v", c.statement, got, c.want)
		}
	}
}

// TestClassifierPreservesKnownMisclassifications documents, rather than
// fixes, the case-sensitive substring matching used for classification: it
// is a known source of both false positives and false negatives, never
// corrected here.
func TestClassifierPreservesKnownMisclassifications(t *testing.T) {
	falsePositive := NewQuery("db", "SELECT * FROM deletes WHERE id = 1")
	if falsePositive.Type != Write {
		t.Fatalf("expected the substring match on 'DELETE' inside 'deletes' to still misclassify as a write, got %v", falsePositive.Type)
	}

	falseNegative := NewQuery("db", "insert into logging values (1)")
	if falseNegative.Type != Read {
		t.Fatalf("expected a lowercase 'insert' to still misclassify as a read, got %v", falseNegative.Type)
	}
}

func TestNewQueryCarriesDatabaseAndStatementVerbatim(t *testing.T) {
	q := NewQuery("rundb", "SELECT 1")
	if q.Database != "rundb" || q.Statement != "SELECT 1" {
		t.Fatalf("unexpected query: %+v", q)
	}
	if q.MessageID != 0 {
		t.Fatalf("expected MessageID to be left zero for the caller to assign, got %d", q.MessageID)
	}
}

func TestQueryTypeString(t *testing.T) {
	if Read.String() != "read" {
		t.Errorf("Read.String() = %q, want %q", Read.String(), "read")
	}
	if Write.String() != "write" {
		t.Errorf("Write.String() = %q, want %q", Write.String(), "write")
	}
}
