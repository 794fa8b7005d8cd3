package settings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-settings/field"
	"github.com/goliatone/go-settings/persist"
	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/registry"
	"github.com/goliatone/go-settings/tenant"
)

func driftRegistry(t *testing.T, extra ...registry.Group) *registry.Static {
	t.Helper()
	groups := append([]registry.Group{{
		Code: "A",
		Fields: []field.Field{
			field.Int("x", "X", 1),
			field.Int("z", "Z", 2),
		},
	}}, extra...)
	reg, err := registry.NewStatic(groups...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func newTestStore(t *testing.T, reg registry.Registry, opts ...Option) (*Store, *persist.MemoryGateway) {
	t.Helper()
	gw := persist.NewMemoryGateway()
	store, err := New(reg, gw, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, gw
}

func intField(t *testing.T, doc *Document, group, code string) *field.Typed[int] {
	t.Helper()
	f, ok := doc.Field(group, code)
	if !ok {
		t.Fatalf("missing field %s.%s", group, code)
	}
	typed, ok := f.(*field.Typed[int])
	if !ok {
		t.Fatalf("field %s.%s has type %T", group, code, f)
	}
	return typed
}

func TestNewValidatesCollaborators(t *testing.T) {
	if _, err := New(nil, persist.NewMemoryGateway()); !errors.Is(err, ErrRegistryRequired) {
		t.Fatalf("expected ErrRegistryRequired, got %v", err)
	}
	if _, err := New(driftRegistry(t), nil); !errors.Is(err, ErrGatewayRequired) {
		t.Fatalf("expected ErrGatewayRequired, got %v", err)
	}
}

func TestGetOrCreateReferenceStability(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))

	a := store.GetOrCreate("t1")
	b := store.GetOrCreate("t2")
	if a == b {
		t.Fatalf("expected distinct documents per tenant")
	}
	if store.GetOrCreate("t1") != a {
		t.Fatalf("expected same instance for repeated id")
	}
	if store.GetOrCreate("") != store.GetOrCreate(DefaultTenant) {
		t.Fatalf("expected empty id to normalize to %q", DefaultTenant)
	}
	if a.Initialized() || store.IsLoaded("t1") {
		t.Fatalf("expected fresh document to be uninitialized")
	}
	if gw.Writes(persist.ForTenant("t1")) != 0 {
		t.Fatalf("expected GetOrCreate to perform no I/O")
	}
	if diff := cmp.Diff([]string{"default", "t1", "t2"}, store.Tenants()); diff != "" {
		t.Fatalf("tenants mismatch (-want +got):\n%s", diff)
	}
}

func TestGetOrCreateConcurrentSingleInstance(t *testing.T) {
	store, _ := newTestStore(t, driftRegistry(t))

	const workers = 32
	docs := make([]*Document, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs[i] = store.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i, doc := range docs {
		if doc != docs[0] {
			t.Fatalf("worker %d observed a different instance", i)
		}
	}
}

func TestActiveUsesDirectory(t *testing.T) {
	dir := tenant.NewStatic("2088")
	store, _ := newTestStore(t, driftRegistry(t), WithDirectory(dir))

	if store.Active() != store.GetOrCreate("2088") {
		t.Fatalf("expected active document for current tenant")
	}
	dir.SetCurrent("")
	if store.Active() != store.GetOrCreate(DefaultTenant) {
		t.Fatalf("expected default document without an active tenant")
	}
}

func TestBootstrapWritesDefaults(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	ctx := context.Background()

	doc := store.Load(ctx, "t1")
	if !doc.Initialized() {
		t.Fatalf("expected document initialized after load")
	}
	want := map[string]map[string]any{"A": {"x": 1, "z": 2}}
	if diff := cmp.Diff(want, doc.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	blob, ok := gw.Blob(persist.ForTenant("t1"))
	if !ok {
		t.Fatalf("expected defaults persisted at tenant location")
	}
	canonical, _ := store.Encode("t1")
	if string(blob) != string(canonical) {
		t.Fatalf("expected persisted defaults to match document:\n%s\n%s", blob, canonical)
	}
	if gw.Writes(persist.ForTenant("t1")) != 1 || gw.Writes(persist.Default()) != 0 {
		t.Fatalf("expected exactly one tenant write and no shared write")
	}
}

func TestLoadDefaultSlotBootstrapsSharedBlob(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))

	store.Load(context.Background(), "")
	if !store.IsLoaded(DefaultTenant) {
		t.Fatalf("expected default tenant loaded")
	}
	if gw.Writes(persist.Default()) != 1 {
		t.Fatalf("expected the shared slot written once, got %d", gw.Writes(persist.Default()))
	}
}

func TestSchemaDriftReconciliation(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":5,"y":7},"Retired":{"q":true}}}`))

	doc := store.Load(context.Background(), "t1")

	want := map[string]map[string]any{"A": {"x": 5, "z": 2}}
	if diff := cmp.Diff(want, doc.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if doc.HasField("A", "y") || doc.HasGroup("Retired") {
		t.Fatalf("expected retired members dropped")
	}
	blob, _ := gw.Blob(persist.ForTenant("t1"))
	if strings.Contains(string(blob), `"y"`) || strings.Contains(string(blob), "Retired") {
		t.Fatalf("expected canonical rewrite without retired members, got %s", blob)
	}
}

func TestRegistryGroupAddedAfterPersist(t *testing.T) {
	reg := driftRegistry(t)
	store, gw := newTestStore(t, reg)
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":5}}}`))

	if err := reg.Register(registry.Group{Code: "B", Fields: []field.Field{field.Bool("enable", "Enable", true)}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	doc := store.Load(context.Background(), "t1")

	if diff := cmp.Diff([]string{"A", "B"}, doc.GroupCodes()); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	if v, _ := doc.Field("B", "enable"); v.Value() != true {
		t.Fatalf("expected new group at defaults, got %v", v.Value())
	}
}

func TestLoadPublishesOnlyReconciledGroups(t *testing.T) {
	base := driftRegistry(t)
	var (
		doc      *Document
		watching bool
		observed []string
	)
	reg := registry.Func(func() []registry.Group {
		if watching {
			if f, ok := doc.Field("A", "x"); ok {
				if _, typed := f.(*field.Typed[int]); !typed {
					observed = append(observed, "untyped x")
				}
			}
			if doc.HasGroup("retired") {
				observed = append(observed, "retired group")
			}
		}
		return base.Groups()
	})
	store, gw := newTestStore(t, reg)
	ctx := context.Background()
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":7},"retired":{"y":1}}}`))

	doc = store.GetOrCreate("t1")
	watching = true
	store.Load(ctx, "t1")
	watching = false

	if len(observed) != 0 {
		t.Fatalf("expected no intermediate state during reconcile, saw %v", observed)
	}
	if got := intField(t, doc, "A", "x").Get(); got != 7 {
		t.Fatalf("expected x=7 after load, got %d", got)
	}
	if doc.HasGroup("retired") {
		t.Fatalf("expected retired group dropped")
	}
}

func TestRepairStripsUnrecognizedMember(t *testing.T) {
	capture := &activity.CaptureHook{}
	store, gw := newTestStore(t, driftRegistry(t), WithActivityHooks(capture))
	ctx := context.Background()
	loc := persist.ForTenant("t1")
	gw.Put(loc, []byte(`{"legacyFlag":true,"settingGroups":{"A":{"x":5,"z":6}}}`))

	doc := store.Load(ctx, "t1")
	if intField(t, doc, "A", "x").Get() != 5 || intField(t, doc, "A", "z").Get() != 6 {
		t.Fatalf("expected values kept after repair, got %v", doc.Snapshot())
	}
	blob, _ := gw.Blob(loc)
	if strings.Contains(string(blob), "legacyFlag") {
		t.Fatalf("expected member stripped from rewritten blob, got %s", blob)
	}
	if gw.Writes(loc) != 1 {
		t.Fatalf("expected one repair write, got %d", gw.Writes(loc))
	}

	var repaired []activity.Event
	for _, event := range capture.Events() {
		if event.Verb == activity.VerbRepaired {
			repaired = append(repaired, event)
		}
	}
	if len(repaired) != 1 || repaired[0].Metadata["member"] != "legacyFlag" {
		t.Fatalf("expected one repaired event naming the member, got %+v", repaired)
	}

	store.Load(ctx, "t1")
	if gw.Writes(loc) != 1 {
		t.Fatalf("expected second load to find a clean blob, got %d writes", gw.Writes(loc))
	}
	if diff := cmp.Diff([]string{activity.VerbRepaired, activity.VerbLoaded, activity.VerbLoaded}, capture.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairRetriesOnlyOnce(t *testing.T) {
	capture := &activity.CaptureHook{}
	store, gw := newTestStore(t, driftRegistry(t), WithActivityHooks(capture))
	loc := persist.ForTenant("t1")
	gw.Put(loc, []byte(`{"alpha":1,"beta":2,"settingGroups":{"A":{"x":5}}}`))

	doc := store.Load(context.Background(), "t1")

	if !doc.Initialized() {
		t.Fatalf("expected document initialized after recovery")
	}
	if intField(t, doc, "A", "x").Get() != 1 {
		t.Fatalf("expected reset to defaults after failed retry")
	}
	verbs := capture.Verbs()
	if len(verbs) == 0 || verbs[0] != activity.VerbReset {
		t.Fatalf("expected reset event, got %v", verbs)
	}
	blob, _ := gw.Blob(loc)
	canonical, _ := store.Encode("t1")
	if string(blob) != string(canonical) {
		t.Fatalf("expected defaults persisted after recovery, got %s", blob)
	}
}

func TestLoadRecoversMalformedBlob(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	loc := persist.ForTenant("t1")
	gw.Put(loc, []byte(`{"settingGroups":{"A":[1,2]}}`))

	doc := store.Load(context.Background(), "t1")
	want := map[string]map[string]any{"A": {"x": 1, "z": 2}}
	if diff := cmp.Diff(want, doc.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if gw.Writes(loc) != 1 {
		t.Fatalf("expected defaults written once, got %d", gw.Writes(loc))
	}
}

func TestLoadSwallowsRecoveryFailure(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	gw.Put(persist.ForTenant("t1"), []byte(`not json`))
	gw.FailWrites(errors.New("read-only filesystem"))

	doc := store.Load(context.Background(), "t1")
	if !doc.Initialized() {
		t.Fatalf("expected document initialized despite failed recovery write")
	}
	if intField(t, doc, "A", "z").Get() != 2 {
		t.Fatalf("expected defaults in memory")
	}
}

func TestLoadReadFailureResetsDefaults(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":5}}}`))
	gw.FailReads(errors.New("io error"))

	doc := store.Load(context.Background(), "t1")
	if intField(t, doc, "A", "x").Get() != 1 {
		t.Fatalf("expected defaults after read failure")
	}
}

func TestFieldCopyFailureIsIsolated(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":"soon","z":9}}}`))

	doc := store.Load(context.Background(), "t1")
	want := map[string]map[string]any{"A": {"x": 1, "z": 9}}
	if diff := cmp.Diff(want, doc.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestNullValuesKeepDefaults(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":null,"z":4}}}`))

	doc := store.Load(context.Background(), "t1")
	if intField(t, doc, "A", "x").Get() != 1 || intField(t, doc, "A", "z").Get() != 4 {
		t.Fatalf("unexpected values %v", doc.Snapshot())
	}
}

func TestColdStartFromDefaultTemplate(t *testing.T) {
	capture := &activity.CaptureHook{}
	store, gw := newTestStore(t, driftRegistry(t), WithActivityHooks(capture))
	gw.Put(persist.Default(), []byte(`{"settingGroups":{"A":{"x":9,"y":3}}}`))

	doc := store.Load(context.Background(), "t1")
	if intField(t, doc, "A", "x").Get() != 9 || intField(t, doc, "A", "z").Get() != 2 {
		t.Fatalf("expected template values reconciled, got %v", doc.Snapshot())
	}
	blob, ok := gw.Blob(persist.ForTenant("t1"))
	if !ok {
		t.Fatalf("expected tenant blob written from template")
	}
	canonical, _ := store.Encode("t1")
	if string(blob) != string(canonical) {
		t.Fatalf("expected reconciled template persisted, got %s", blob)
	}
	if gw.Writes(persist.Default()) != 0 {
		t.Fatalf("expected template untouched")
	}
	events := capture.Events()
	if len(events) != 1 || events[0].Metadata["source"] != activity.SourceTemplate {
		t.Fatalf("expected one template load event, got %+v", events)
	}
}

func TestDecodeMergesOverCurrentValues(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	ctx := context.Background()
	loc := persist.ForTenant("t1")

	gw.Put(loc, []byte(`{"settingGroups":{"A":{"x":5}}}`))
	doc := store.Load(ctx, "t1")

	gw.Put(loc, []byte(`{"settingGroups":{"A":{"z":3}}}`))
	store.Load(ctx, "t1")

	if intField(t, doc, "A", "x").Get() != 5 || intField(t, doc, "A", "z").Get() != 3 {
		t.Fatalf("expected blob layered over in-memory values, got %v", doc.Snapshot())
	}
}

func TestRoundTrip(t *testing.T) {
	reg := driftRegistry(t, registry.Group{
		Code: "customSettings",
		Fields: []field.Field{
			field.Bool("onlyOnceDaily", "Only once daily", true),
			field.StringList("autoHandleOnceDailyTimes", "Times", []string{"0600", "2000"}),
			field.NewSelect("onlyOnceDailyList", "Modules", nil,
				field.Option{ID: "antOrchard", Name: "Orchard"},
				field.Option{ID: "antSports", Name: "Sports"},
			),
		},
	})
	ctx := context.Background()
	store, gw := newTestStore(t, reg)

	doc := store.Load(ctx, "t1")
	intField(t, doc, "A", "x").Set(42)
	times, _ := doc.Field("customSettings", "autoHandleOnceDailyTimes")
	times.(*field.Typed[[]string]).Set([]string{"1200"})
	sel, _ := doc.Field("customSettings", "onlyOnceDailyList")
	sel.(*field.Select).Set([]string{"antSports"})
	if !store.Save(ctx, "t1", false) {
		t.Fatalf("save failed")
	}

	blob, _ := gw.Blob(persist.ForTenant("t1"))
	fresh, err := New(reg, gw)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	reloaded := fresh.Load(ctx, "t1")
	if diff := cmp.Diff(doc.Snapshot(), reloaded.Snapshot()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	after, _ := gw.Blob(persist.ForTenant("t1"))
	if string(after) != string(blob) {
		t.Fatalf("expected reload of canonical blob to leave it untouched")
	}
	if fresh.IsModified(ctx, "t1") {
		t.Fatalf("expected reloaded document to match persisted blob")
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	ctx := context.Background()
	loc := persist.ForTenant("t1")

	doc := store.Load(ctx, "t1")
	if gw.Writes(loc) != 1 {
		t.Fatalf("expected bootstrap write")
	}
	if !store.Save(ctx, "t1", false) || gw.Writes(loc) != 1 {
		t.Fatalf("expected unmodified save to skip the write")
	}

	intField(t, doc, "A", "x").Set(7)
	if !store.IsModified(ctx, "t1") {
		t.Fatalf("expected modification detected")
	}
	store.Save(ctx, "t1", false)
	store.Save(ctx, "t1", false)
	if gw.Writes(loc) != 2 {
		t.Fatalf("expected exactly one write for two saves, got %d total", gw.Writes(loc))
	}

	if !store.Save(ctx, "t1", true) || gw.Writes(loc) != 3 {
		t.Fatalf("expected forced save to write")
	}
}

func TestIsModifiedFailsOpen(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	ctx := context.Background()

	if !store.IsModified(ctx, "t1") {
		t.Fatalf("expected missing blob to count as modified")
	}
	store.Load(ctx, "t1")
	if store.IsModified(ctx, "t1") {
		t.Fatalf("expected freshly loaded document unmodified")
	}
	gw.FailReads(errors.New("io error"))
	if !store.IsModified(ctx, "t1") {
		t.Fatalf("expected read failure to count as modified")
	}
}

func TestSaveReportsGatewayFailure(t *testing.T) {
	capture := &activity.CaptureHook{}
	store, gw := newTestStore(t, driftRegistry(t), WithActivityHooks(capture))
	gw.FailWrites(errors.New("disk full"))

	if store.Save(context.Background(), "t1", true) {
		t.Fatalf("expected save to fail")
	}
	for _, verb := range capture.Verbs() {
		if verb == activity.VerbSaved {
			t.Fatalf("expected no saved event on failure")
		}
	}
}

type unencodableField struct{ code string }

func (f unencodableField) Code() string                 { return f.code }
func (f unencodableField) Value() any                   { return nil }
func (f unencodableField) Reset()                       {}
func (f unencodableField) New() field.Field             { return f }
func (f unencodableField) MarshalJSON() ([]byte, error) { return nil, errors.New("unencodable") }
func (f unencodableField) UnmarshalJSON([]byte) error   { return nil }

func TestSaveEncodeFailureWritesNothing(t *testing.T) {
	reg := driftRegistry(t, registry.Group{Code: "broken", Fields: []field.Field{unencodableField{code: "b"}}})
	store, gw := newTestStore(t, reg)
	ctx := context.Background()

	store.Load(ctx, "t1")
	if store.Save(ctx, "t1", true) {
		t.Fatalf("expected save to fail on encode error")
	}
	if gw.Writes(persist.ForTenant("t1")) != 0 {
		t.Fatalf("expected nothing written")
	}
	if _, err := store.Encode("t1"); !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestUnloadResetsInPlace(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	ctx := context.Background()
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":5,"z":6}}}`))

	doc := store.Load(ctx, "t1")
	x := intField(t, doc, "A", "x")
	store.Unload(ctx, "t1")

	want := map[string]map[string]any{"A": {"x": 1, "z": 2}}
	if diff := cmp.Diff(want, doc.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if store.GetOrCreate("t1") != doc || intField(t, doc, "A", "x") != x {
		t.Fatalf("expected document and field identity preserved")
	}
	if !store.IsLoaded("t1") {
		t.Fatalf("expected initialized flag left set after unload")
	}
}

func TestUnloadActive(t *testing.T) {
	dir := tenant.NewStatic("t2")
	store, gw := newTestStore(t, driftRegistry(t), WithDirectory(dir))
	ctx := context.Background()
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":5}}}`))
	gw.Put(persist.ForTenant("t2"), []byte(`{"settingGroups":{"A":{"x":5}}}`))

	t1 := store.Load(ctx, "t1")
	t2 := store.Load(ctx, "t2")
	store.UnloadActive(ctx)

	if intField(t, t2, "A", "x").Get() != 1 {
		t.Fatalf("expected active tenant reset")
	}
	if intField(t, t1, "A", "x").Get() != 5 {
		t.Fatalf("expected other tenant untouched")
	}
}

func TestNotifierFiresOnlyForActiveTenant(t *testing.T) {
	cases := []struct {
		name    string
		current string
		want    []string
	}{
		{name: "named tenant", current: "t1", want: []string{"t1"}},
		{name: "empty current selects default", current: "", want: []string{DefaultTenant}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls []string
			notifier := NotifierFunc(func(_ context.Context, id string) { calls = append(calls, id) })
			store, _ := newTestStore(t, driftRegistry(t), WithDirectory(tenant.NewStatic(tc.current)), WithNotifier(notifier))
			ctx := context.Background()

			store.Load(ctx, "t2")
			store.Load(ctx, "t1")
			store.Load(ctx, "")

			if diff := cmp.Diff(tc.want, calls); diff != "" {
				t.Fatalf("notifier calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTenantsAreIsolated(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	ctx := context.Background()
	gw.Put(persist.Default(), []byte(`{"settingGroups":{"A":{"x":3}}}`))

	t1 := store.Load(ctx, "t1")
	t2 := store.Load(ctx, "t2")
	intField(t, t1, "A", "x").Set(100)

	if intField(t, t2, "A", "x").Get() != 3 {
		t.Fatalf("expected t2 unaffected by t1 edits")
	}
	f1, _ := t1.Field("A", "x")
	f2, _ := t2.Field("A", "x")
	if f1 == f2 {
		t.Fatalf("expected tenants to own distinct field instances")
	}
}

func TestConcurrentEditsDuringSave(t *testing.T) {
	store, _ := newTestStore(t, driftRegistry(t))
	ctx := context.Background()
	doc := store.Load(ctx, "t1")
	x := intField(t, doc, "A", "x")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			x.Set(i)
		}(i)
		go func() {
			defer wg.Done()
			store.Save(ctx, "t1", false)
		}()
	}
	wg.Wait()

	if !store.Save(ctx, "t1", false) || store.IsModified(ctx, "t1") {
		t.Fatalf("expected final save to converge")
	}
}

func TestLabelFallsBackToTenantID(t *testing.T) {
	dir := tenant.NewStatic("")
	dir.SetLabel("t1", "Alice")
	store, _ := newTestStore(t, driftRegistry(t), WithDirectory(dir), WithDefaultLabel("shared"))

	cases := map[string]string{DefaultTenant: "shared", "t1": "Alice", "t2": "t2"}
	for id, want := range cases {
		if got := store.label(id); got != want {
			t.Fatalf("label(%q): expected %q, got %q", id, want, got)
		}
	}
}

func TestEvaluateOverTenantSnapshot(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	ctx := context.Background()
	gw.Put(persist.ForTenant("t1"), []byte(`{"settingGroups":{"A":{"x":5}}}`))
	store.Load(ctx, "t1")

	got, err := store.Evaluate(ctx, "t1", `A.x > A.z && tenant == "t1"`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %#v", got)
	}
	if _, err := store.Evaluate(ctx, "t1", ""); err == nil {
		t.Fatalf("expected error for empty expression")
	}
}

func TestReconcileCarriesValuesByCode(t *testing.T) {
	store, gw := newTestStore(t, driftRegistry(t))
	incoming := map[string]*field.Set{
		"A": field.NewSet(
			field.Int("x", "X", 5),
			field.Int("y", "Y", 7),
			field.String("z", "Z", "two"),
		),
		"Gone": field.NewSet(field.Bool("flag", "Flag", true)),
	}

	failures := store.Reconcile("t1", incoming)

	if failures != 1 {
		t.Fatalf("expected the mistyped z to fail, got %d failures", failures)
	}
	want := map[string]map[string]any{"A": {"x": 5, "z": 2}}
	if diff := cmp.Diff(want, store.GetOrCreate("t1").Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if gw.Writes(persist.ForTenant("t1")) != 0 {
		t.Fatalf("expected reconcile to perform no I/O")
	}
	if store.IsLoaded("t1") {
		t.Fatalf("expected reconcile to leave the initialized flag alone")
	}
}
