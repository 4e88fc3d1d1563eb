package docstore

import "testing"

// NewTestStore opens a throwaway encrypted store under the test's temp
// dir, so tests exercise the real sqlite-backed implementation.
func NewTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open("test-passphrase", t.TempDir())
	if err != nil {
		t.Fatalf("unable to open test store: %v", err)
	}

	return store
}
