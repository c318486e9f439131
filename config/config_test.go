package config

import "testing"

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tick.RateHz != 20 {
		t.Errorf("expected default tick rate 20, got %d", cfg.Tick.RateHz)
	}
	if cfg.Movement.VelHistLen != 14 {
		t.Errorf("expected vel_hist_len=14, got %d", cfg.Movement.VelHistLen)
	}
}

func TestComputeDerivedDT32(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := float32(1.0 / 20.0)
	if cfg.Derived.DT32 != want {
		t.Errorf("expected DT32=%v, got %v", want, cfg.Derived.DT32)
	}
	if cfg.Derived.MaxMoveTasks != MaxMoveTasksCeiling {
		t.Errorf("expected MaxMoveTasks=%d, got %d", MaxMoveTasksCeiling, cfg.Derived.MaxMoveTasks)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() { global = saved }()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected Cfg() to panic before Init()")
		}
	}()
	Cfg()
}

func TestInitSetsGlobal(t *testing.T) {
	saved := global
	defer func() { global = saved }()

	if err := Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Cfg() == nil {
		t.Fatal("expected Cfg() to return non-nil after Init")
	}
}
