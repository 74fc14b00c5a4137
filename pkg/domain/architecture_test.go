package domain

import (
	"testing"

	"schoolcore/testutil"
)

// The domain layer stays free of implementation packages and storage drivers
// so every backend and the CLI can depend on it.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not depend on internal packages")
}

func TestDomainDoesNotImportStorageDrivers(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StorageDriverForbidden, "drivers belong to persistence backends")
}
