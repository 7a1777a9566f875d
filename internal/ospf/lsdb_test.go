package ospf_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLSDBInstallLookupDelete(t *testing.T) {
	t.Parallel()

	db := ospf.NewLSDB(ospf.ScopeArea, discardLogger())

	key := ospf.LSAKey{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1}
	if got := db.Lookup(key); got != nil {
		t.Fatalf("Lookup on empty LSDB = %v, want nil", got)
	}

	lsa := ospf.BuildLSA(ospf.LSAHeader{
		Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1, SeqNum: ospf.InitialSequenceNumber,
	}, ospf.EncodeRouterLSABody(ospf.RouterLSABody{}))

	if prev := db.Install(lsa); prev != nil {
		t.Fatalf("Install of a new key returned non-nil previous instance: %v", prev)
	}
	if got := db.Lookup(key); got != lsa {
		t.Fatalf("Lookup after Install = %v, want the installed instance", got)
	}

	newer := ospf.BuildLSA(ospf.LSAHeader{
		Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1, SeqNum: ospf.InitialSequenceNumber + 1,
	}, ospf.EncodeRouterLSABody(ospf.RouterLSABody{}))
	if prev := db.Install(newer); prev != lsa {
		t.Fatalf("Install of an existing key returned %v, want the prior instance %v", prev, lsa)
	}

	db.Delete(key)
	if got := db.Lookup(key); got != nil {
		t.Fatalf("Lookup after Delete = %v, want nil", got)
	}
}

func TestLSDBRetransmitRefCounting(t *testing.T) {
	t.Parallel()

	db := ospf.NewLSDB(ospf.ScopeArea, discardLogger())
	key := ospf.LSAKey{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1}

	// Refcounting on a key with no stored instance must not panic.
	db.AddRetransmitRef(key)
	db.ReleaseRetransmitRef(key)

	lsa := ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1}, nil)
	db.Install(lsa)

	db.AddRetransmitRef(key)
	db.AddRetransmitRef(key)
	db.ReleaseRetransmitRef(key)
	db.ReleaseRetransmitRef(key)

	// A release beyond zero must not underflow.
	db.ReleaseRetransmitRef(key)
	db.ReleaseRetransmitRef(key)
}

func TestLSDBAllSortOrder(t *testing.T) {
	t.Parallel()

	db := ospf.NewLSDB(ospf.ScopeArea, discardLogger())

	// Installed out of order; All() must come back type, then LS-ID, then
	// advertising-router ascending.
	db.Install(ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeNetwork, LSID: 5, AdvRouter: 1}, nil))
	db.Install(ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeRouter, LSID: 2, AdvRouter: 9}, nil))
	db.Install(ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeRouter, LSID: 2, AdvRouter: 3}, nil))
	db.Install(ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 7}, nil))

	all := db.All()
	if len(all) != 4 {
		t.Fatalf("All() returned %d entries, want 4", len(all))
	}

	wantOrder := []ospf.LSAKey{
		{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 7},
		{Type: ospf.LSTypeRouter, LSID: 2, AdvRouter: 3},
		{Type: ospf.LSTypeRouter, LSID: 2, AdvRouter: 9},
		{Type: ospf.LSTypeNetwork, LSID: 5, AdvRouter: 1},
	}
	for idx, want := range wantOrder {
		if got := all[idx].Header.Key(); got != want {
			t.Errorf("All()[%d].Key() = %+v, want %+v", idx, got, want)
		}
	}
}

func TestLSDBByType(t *testing.T) {
	t.Parallel()

	db := ospf.NewLSDB(ospf.ScopeArea, discardLogger())
	db.Install(ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1}, nil))
	db.Install(ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeRouter, LSID: 2, AdvRouter: 1}, nil))
	db.Install(ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeNetwork, LSID: 1, AdvRouter: 1}, nil))

	routers := db.ByType(ospf.LSTypeRouter)
	if len(routers) != 2 {
		t.Fatalf("ByType(Router) returned %d entries, want 2", len(routers))
	}
	for _, lsa := range routers {
		if lsa.Header.Type != ospf.LSTypeRouter {
			t.Errorf("ByType(Router) returned a %v entry", lsa.Header.Type)
		}
	}

	if got := db.ByType(ospf.LSTypeASExternal); len(got) != 0 {
		t.Errorf("ByType(ASExternal) = %v, want empty", got)
	}
}

func TestLSDBTickIncrementsAgeCappedAtMaxAge(t *testing.T) {
	t.Parallel()

	db := ospf.NewLSDB(ospf.ScopeArea, discardLogger())
	key := ospf.LSAKey{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1}
	lsa := ospf.BuildLSA(ospf.LSAHeader{Type: ospf.LSTypeRouter, LSID: 1, AdvRouter: 1, Age: 3598}, nil)
	db.Install(lsa)

	db.Tick()
	if got := db.Lookup(key).Header.Age; got != 3599 {
		t.Fatalf("Age after one Tick = %d, want 3599", got)
	}

	db.Tick()
	if got := db.Lookup(key).Header.Age; got != 3600 {
		t.Fatalf("Age after two Ticks = %d, want 3600 (MaxAge)", got)
	}

	db.Tick()
	if got := db.Lookup(key).Header.Age; got != 3600 {
		t.Fatalf("Age after Tick past MaxAge = %d, want capped at 3600", got)
	}
	if !db.Lookup(key).IsMaxAge() {
		t.Error("IsMaxAge() = false for an LSA ticked to MaxAge")
	}
}
