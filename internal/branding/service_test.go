package branding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"brandhub/api/internal/broadcast"
	"brandhub/api/internal/cache"
	"brandhub/api/internal/storage"
	"brandhub/api/internal/store"
	"brandhub/api/internal/validate"
)

type fakeStore struct {
	tenantExists     func(ctx context.Context, tenantID string) (bool, error)
	findBranding     func(ctx context.Context, tenantID string) (*store.BrandingRow, error)
	createBranding   func(ctx context.Context, tenantID string, paletteID, schemeID, customCSS *string, editorID string) (*store.BrandingRow, error)
	updateBranding   func(ctx context.Context, id string, paletteID, schemeID, customCSS *string, editorID string) (*store.BrandingRow, error)
	clearBranding    func(ctx context.Context, id, editorID string) error
	deleteBranding   func(ctx context.Context, id string) error
	listLogos        func(ctx context.Context, brandingID string) ([]store.Logo, error)
	findLogo         func(ctx context.Context, brandingID, slot string) (*store.Logo, error)
	insertLogo       func(ctx context.Context, logo store.Logo) error
	deleteLogo       func(ctx context.Context, id string) error
	findPalette      func(ctx context.Context, id string) (*store.ColorPalette, error)
	listPalettes     func(ctx context.Context, tenantID string) ([]store.ColorPalette, error)
	insertPalette    func(ctx context.Context, p store.ColorPalette) (string, error)
	findFontScheme   func(ctx context.Context, id string) (*store.FontScheme, error)
	listFontSchemes  func(ctx context.Context, tenantID string) ([]store.FontScheme, error)
	insertFontScheme func(ctx context.Context, f store.FontScheme) (string, error)
	listPresets      func(ctx context.Context, tenantID string) ([]store.ThemePreset, error)
	insertPreset     func(ctx context.Context, p store.ThemePreset) (string, error)
}

func (f *fakeStore) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	if f.tenantExists != nil {
		return f.tenantExists(ctx, tenantID)
	}
	return true, nil
}

func (f *fakeStore) FindBranding(ctx context.Context, tenantID string) (*store.BrandingRow, error) {
	if f.findBranding != nil {
		return f.findBranding(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeStore) CreateBranding(ctx context.Context, tenantID string, paletteID, schemeID, customCSS *string, editorID string) (*store.BrandingRow, error) {
	if f.createBranding != nil {
		return f.createBranding(ctx, tenantID, paletteID, schemeID, customCSS, editorID)
	}
	return &store.BrandingRow{ID: "tb_1", TenantID: tenantID, ColorPaletteID: paletteID, FontSchemeID: schemeID, CustomCSS: customCSS}, nil
}

func (f *fakeStore) UpdateBranding(ctx context.Context, id string, paletteID, schemeID, customCSS *string, editorID string) (*store.BrandingRow, error) {
	if f.updateBranding != nil {
		return f.updateBranding(ctx, id, paletteID, schemeID, customCSS, editorID)
	}
	return &store.BrandingRow{ID: id, ColorPaletteID: paletteID, FontSchemeID: schemeID, CustomCSS: customCSS}, nil
}

func (f *fakeStore) ClearBranding(ctx context.Context, id, editorID string) error {
	if f.clearBranding != nil {
		return f.clearBranding(ctx, id, editorID)
	}
	return nil
}

func (f *fakeStore) DeleteBranding(ctx context.Context, id string) error {
	if f.deleteBranding != nil {
		return f.deleteBranding(ctx, id)
	}
	return nil
}

func (f *fakeStore) ListLogos(ctx context.Context, brandingID string) ([]store.Logo, error) {
	if f.listLogos != nil {
		return f.listLogos(ctx, brandingID)
	}
	return nil, nil
}

func (f *fakeStore) FindLogo(ctx context.Context, brandingID, slot string) (*store.Logo, error) {
	if f.findLogo != nil {
		return f.findLogo(ctx, brandingID, slot)
	}
	return nil, nil
}

func (f *fakeStore) InsertLogo(ctx context.Context, logo store.Logo) error {
	if f.insertLogo != nil {
		return f.insertLogo(ctx, logo)
	}
	return nil
}

func (f *fakeStore) DeleteLogo(ctx context.Context, id string) error {
	if f.deleteLogo != nil {
		return f.deleteLogo(ctx, id)
	}
	return nil
}

func (f *fakeStore) FindPalette(ctx context.Context, id string) (*store.ColorPalette, error) {
	if f.findPalette != nil {
		return f.findPalette(ctx, id)
	}
	return nil, nil
}

func (f *fakeStore) ListPalettes(ctx context.Context, tenantID string) ([]store.ColorPalette, error) {
	if f.listPalettes != nil {
		return f.listPalettes(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeStore) InsertPalette(ctx context.Context, p store.ColorPalette) (string, error) {
	if f.insertPalette != nil {
		return f.insertPalette(ctx, p)
	}
	return "pal_1", nil
}

func (f *fakeStore) FindFontScheme(ctx context.Context, id string) (*store.FontScheme, error) {
	if f.findFontScheme != nil {
		return f.findFontScheme(ctx, id)
	}
	return nil, nil
}

func (f *fakeStore) ListFontSchemes(ctx context.Context, tenantID string) ([]store.FontScheme, error) {
	if f.listFontSchemes != nil {
		return f.listFontSchemes(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeStore) InsertFontScheme(ctx context.Context, fs store.FontScheme) (string, error) {
	if f.insertFontScheme != nil {
		return f.insertFontScheme(ctx, fs)
	}
	return "fs_1", nil
}

func (f *fakeStore) ListPresets(ctx context.Context, tenantID string) ([]store.ThemePreset, error) {
	if f.listPresets != nil {
		return f.listPresets(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeStore) InsertPreset(ctx context.Context, p store.ThemePreset) (string, error) {
	if f.insertPreset != nil {
		return f.insertPreset(ctx, p)
	}
	return "preset_1", nil
}

func newTestService(t *testing.T, st DataStore) (*Service, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	c := cache.New[Config](nil, "branding:", cache.DefaultTTL)
	svc := NewService(st, c, broadcast.NoopBus{}, storage.NewMemStorage(), logger)
	return svc, &buf
}

func strptr(s string) *string { return &s }

func pngData() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
}

func TestLoadReturnsDefaultWhenUncustomized(t *testing.T) {
	svc, logs := newTestService(t, &fakeStore{})

	cfg, err := svc.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsDefault {
		t.Fatal("expected default config")
	}
	if cfg.Palette.PrimaryColor != "hsl(222.2 84% 4.9%)" {
		t.Fatalf("unexpected default primary %q", cfg.Palette.PrimaryColor)
	}
	if cfg.Palette.SecondaryColor != "hsl(210 40% 96%)" {
		t.Fatalf("unexpected default secondary %q", cfg.Palette.SecondaryColor)
	}
	if cfg.Fonts.FontSans[0] != "ui-sans-serif" || cfg.Fonts.FontMono[0] != "ui-monospace" {
		t.Fatalf("unexpected default font stacks %v %v", cfg.Fonts.FontSans, cfg.Fonts.FontMono)
	}
	if len(cfg.Warnings) != 1 || cfg.Warnings[0] != DefaultFallbackWarning {
		t.Fatalf("expected the fallback warning on the config, got %v", cfg.Warnings)
	}
	if !strings.Contains(logs.String(), "no custom branding found") {
		t.Fatalf("expected default fallback to be logged, got %q", logs.String())
	}
}

func TestLoadUnknownTenant(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{
		tenantExists: func(context.Context, string) (bool, error) { return false, nil },
	})
	if _, err := svc.Load(context.Background(), "nope"); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestLoadServesFromCache(t *testing.T) {
	calls := 0
	svc, _ := newTestService(t, &fakeStore{
		findBranding: func(context.Context, string) (*store.BrandingRow, error) {
			calls++
			return nil, nil
		},
	})

	ctx := context.Background()
	if _, err := svc.Load(ctx, "t1"); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := svc.Load(ctx, "t1"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one store hit, got %d", calls)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	palette := store.ColorPalette{ID: "pal_1", TenantID: "t1", Name: "Brand", PrimaryColor: "#336699", BackgroundColor: "#ffffff", ForegroundColor: "#111111"}
	var saved *store.BrandingRow
	st := &fakeStore{
		findPalette: func(_ context.Context, id string) (*store.ColorPalette, error) {
			if id == "pal_1" {
				return &palette, nil
			}
			return nil, nil
		},
		findBranding: func(context.Context, string) (*store.BrandingRow, error) { return saved, nil },
		createBranding: func(_ context.Context, tenantID string, paletteID, schemeID, customCSS *string, _ string) (*store.BrandingRow, error) {
			saved = &store.BrandingRow{ID: "tb_1", TenantID: tenantID, ColorPaletteID: paletteID, FontSchemeID: schemeID, CustomCSS: customCSS, UpdatedAt: time.Now()}
			return saved, nil
		},
	}
	svc, _ := newTestService(t, st)

	cfg, err := svc.Save(context.Background(), "t1", SaveRequest{ColorPaletteID: strptr("pal_1"), CustomCSS: strptr(".login { border: 0 }")}, "user_1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if cfg.IsDefault {
		t.Fatal("saved config must not be default")
	}
	if cfg.Palette.ID != "pal_1" {
		t.Fatalf("palette not resolved: %+v", cfg.Palette)
	}
	if cfg.CustomCSS != ".login { border: 0 }" {
		t.Fatalf("custom css not carried: %q", cfg.CustomCSS)
	}

	// A subsequent load must see the saved config, not the default.
	got, err := svc.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("load after save: %v", err)
	}
	if got.IsDefault || got.Palette.ID != "pal_1" {
		t.Fatalf("load returned stale config: %+v", got)
	}
}

func TestSaveRejectsUnknownPalette(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{})
	_, err := svc.Save(context.Background(), "t1", SaveRequest{ColorPaletteID: strptr("missing")}, "user_1")
	if !errors.Is(err, ErrPaletteNotFound) {
		t.Fatalf("expected ErrPaletteNotFound, got %v", err)
	}
}

func TestResetPreservesLogos(t *testing.T) {
	cleared := false
	deleted := false
	row := &store.BrandingRow{ID: "tb_1", TenantID: "t1", CustomCSS: strptr("body{}")}
	svc, _ := newTestService(t, &fakeStore{
		findBranding: func(context.Context, string) (*store.BrandingRow, error) { return row, nil },
		clearBranding: func(context.Context, string, string) error {
			cleared = true
			row = &store.BrandingRow{ID: "tb_1", TenantID: "t1"}
			return nil
		},
		deleteBranding: func(context.Context, string) error {
			deleted = true
			return nil
		},
	})

	if _, err := svc.Reset(context.Background(), "t1", true, "user_1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !cleared {
		t.Fatal("expected ClearBranding to run")
	}
	if deleted {
		t.Fatal("preserveLogos must not delete the row")
	}
}

func TestResetDeletesLogosAndObjects(t *testing.T) {
	row := &store.BrandingRow{ID: "tb_1", TenantID: "t1"}
	objects := storage.NewMemStorage()
	_ = objects.Upload(context.Background(), "t1/login/1_logo.png", pngData(), "image/png")

	var buf bytes.Buffer
	c := cache.New[Config](nil, "branding:", cache.DefaultTTL)
	svc := NewService(&fakeStore{
		findBranding: func(context.Context, string) (*store.BrandingRow, error) {
			if row == nil {
				return nil, nil
			}
			return row, nil
		},
		listLogos: func(context.Context, string) ([]store.Logo, error) {
			if row == nil {
				return nil, nil
			}
			return []store.Logo{{ID: "logo_1", BrandingID: "tb_1", Slot: store.SlotLogin, Path: "t1/login/1_logo.png"}}, nil
		},
		deleteBranding: func(context.Context, string) error {
			row = nil
			return nil
		},
	}, c, broadcast.NoopBus{}, objects, log.New(&buf, "", 0))

	cfg, err := svc.Reset(context.Background(), "t1", false, "user_1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !cfg.IsDefault {
		t.Fatal("expected default config after full reset")
	}
	if objects.Has("t1/login/1_logo.png") {
		t.Fatal("expected stored object to be removed")
	}
}

func TestUploadLogoRejectsInvalidFile(t *testing.T) {
	inserted := false
	svc, _ := newTestService(t, &fakeStore{
		insertLogo: func(context.Context, store.Logo) error {
			inserted = true
			return nil
		},
	})

	_, _, err := svc.UploadLogo(context.Background(), "t1", store.SlotLogin,
		validate.LogoFile{Name: "evil.exe", Size: 100, MimeType: "application/x-msdownload", Data: []byte{0x4D, 0x5A}}, "user_1")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if inserted {
		t.Fatal("invalid file must not reach the store")
	}
}

func TestUploadLogoRejectsInvalidSlot(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{})
	_, _, err := svc.UploadLogo(context.Background(), "t1", "banner",
		validate.LogoFile{Name: "logo.png", Size: 100, MimeType: "image/png", Data: pngData()}, "user_1")
	if !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestUploadLogoCompensatesOnMetadataFailure(t *testing.T) {
	objects := storage.NewMemStorage()
	var buf bytes.Buffer
	c := cache.New[Config](nil, "branding:", cache.DefaultTTL)
	svc := NewService(&fakeStore{
		insertLogo: func(context.Context, store.Logo) error {
			return errors.New("insert failed")
		},
	}, c, broadcast.NoopBus{}, objects, log.New(&buf, "", 0))

	_, _, err := svc.UploadLogo(context.Background(), "t1", store.SlotLogin,
		validate.LogoFile{Name: "logo.png", Size: 100, MimeType: "image/png", Data: pngData()}, "user_1")
	if err == nil {
		t.Fatal("expected upload to fail")
	}
	if objects.Len() != 0 {
		t.Fatal("expected compensating delete to remove the uploaded object")
	}
}

func TestUploadLogoDisplacesPrevious(t *testing.T) {
	objects := storage.NewMemStorage()
	_ = objects.Upload(context.Background(), "t1/login/old.png", pngData(), "image/png")

	previous := &store.Logo{ID: "logo_old", BrandingID: "tb_1", Slot: store.SlotLogin, Path: "t1/login/old.png"}
	var deletedID string
	var buf bytes.Buffer
	c := cache.New[Config](nil, "branding:", cache.DefaultTTL)
	svc := NewService(&fakeStore{
		findBranding: func(context.Context, string) (*store.BrandingRow, error) {
			return &store.BrandingRow{ID: "tb_1", TenantID: "t1"}, nil
		},
		findLogo: func(context.Context, string, string) (*store.Logo, error) { return previous, nil },
		deleteLogo: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}, c, broadcast.NoopBus{}, objects, log.New(&buf, "", 0))

	logo, warnings, err := svc.UploadLogo(context.Background(), "t1", store.SlotLogin,
		validate.LogoFile{Name: "new.png", Size: 100, MimeType: "image/png", Data: pngData()}, "user_1")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	if deletedID != "logo_old" {
		t.Fatal("expected previous logo row to be displaced")
	}
	if objects.Has("t1/login/old.png") {
		t.Fatal("expected previous object to be removed")
	}
	if !objects.Has(logo.Path) {
		t.Fatal("expected new object to exist")
	}
	if !strings.HasPrefix(logo.Path, "t1/login/") {
		t.Fatalf("unexpected storage path %q", logo.Path)
	}
}

type recordingBus struct {
	updates       []string
	invalidations []string
}

func (b *recordingBus) PublishUpdate(_ context.Context, tenantID string, _ json.RawMessage) error {
	b.updates = append(b.updates, tenantID)
	return nil
}

func (b *recordingBus) PublishInvalidation(_ context.Context, tenantID string) error {
	b.invalidations = append(b.invalidations, tenantID)
	return nil
}

func (b *recordingBus) Subscribe(broadcast.Handler) func() { return func() {} }

func (b *recordingBus) Close() error { return nil }

func TestUploadLogoBroadcastsInvalidation(t *testing.T) {
	bus := &recordingBus{}
	var buf bytes.Buffer
	c := cache.New[Config](nil, "branding:", cache.DefaultTTL)
	svc := NewService(&fakeStore{}, c, bus, storage.NewMemStorage(), log.New(&buf, "", 0))

	_, _, err := svc.UploadLogo(context.Background(), "t1", store.SlotLogin,
		validate.LogoFile{Name: "logo.png", Size: 100, MimeType: "image/png", Data: pngData()}, "user_1")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(bus.invalidations) != 1 || bus.invalidations[0] != "t1" {
		t.Fatalf("expected one invalidation for t1, got %v", bus.invalidations)
	}
	if len(bus.updates) != 0 {
		t.Fatalf("upload must not broadcast an update, got %v", bus.updates)
	}
}

func TestCreatePaletteRejectsBadColors(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{})
	p := store.ColorPalette{TenantID: "t1", Name: "Broken"}
	p.PrimaryColor = "javascript:alert(1)"
	_, err := svc.CreatePalette(context.Background(), p)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateFontSchemeRequiresGenericFallback(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{})
	f := store.FontScheme{
		TenantID: "t1",
		Name:     "Editorial",
		FontSans: []string{"Inter"},
		FontMono: []string{"JetBrains Mono", "monospace"},
	}
	_, err := svc.CreateFontScheme(context.Background(), f)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 1 || !strings.Contains(verr.Problems[0], "generic family") {
		t.Fatalf("unexpected problems: %v", verr.Problems)
	}
}

func TestSyncListenerDropsMemoryEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})
	ctx := context.Background()

	busA := broadcast.New(ctx, clientA, "inst-a", 0)
	defer busA.Close()
	busB := broadcast.New(ctx, clientB, "inst-b", 0)
	defer busB.Close()

	loads := 0
	var css *string
	st := &fakeStore{
		findBranding: func(context.Context, string) (*store.BrandingRow, error) {
			loads++
			return &store.BrandingRow{ID: "tb_1", TenantID: "t1", CustomCSS: css}, nil
		},
		updateBranding: func(_ context.Context, id string, paletteID, schemeID, customCSS *string, _ string) (*store.BrandingRow, error) {
			css = customCSS
			return &store.BrandingRow{ID: id, TenantID: "t1", CustomCSS: css}, nil
		},
	}
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	svcA := NewService(st, cache.New[Config](clientA, "branding:", cache.DefaultTTL), busA, storage.NewMemStorage(), logger)
	svcB := NewService(st, cache.New[Config](clientB, "branding:", cache.DefaultTTL), busB, storage.NewMemStorage(), logger)
	stop := svcB.StartSyncListener()
	defer stop()

	// Warm instance B's memory tier.
	if _, err := svcB.Load(ctx, "t1"); err != nil {
		t.Fatalf("warm load: %v", err)
	}
	before := loads

	// Instance A saves; B must see the update notification and drop its
	// memory entry, rehydrating from the shared mirror on next load.
	time.Sleep(50 * time.Millisecond)
	if _, err := svcA.Save(ctx, "t1", SaveRequest{CustomCSS: strptr("body{}")}, "user_1"); err != nil {
		t.Fatalf("save: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		cfg, err := svcB.Load(ctx, "t1")
		if err != nil {
			t.Fatalf("load on B: %v", err)
		}
		if cfg.CustomCSS == "body{}" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("instance B never observed the update (store loads %d -> %d)", before, loads)
}
