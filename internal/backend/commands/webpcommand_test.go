package commands

import (
	"testing"

	"github.com/jo-hoe/imagecompressor/internal/backend/commandstructure"
)

func TestNewWebPBudgetParamsFromMap_Defaults(t *testing.T) {
	params, err := NewWebPBudgetParamsFromMap(map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if params.MaxBytes != 200*1024 {
		t.Errorf("Expected default budget 204800, got %d", params.MaxBytes)
	}
	if params.Quality != 80 || params.QualityStep != 10 || params.QualityFloor != 10 {
		t.Errorf("Unexpected default quality settings: %+v", params)
	}
}

func TestNewWebPBudgetParamsFromMap_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"Negative budget", map[string]any{"maxBytes": -1}},
		{"Quality above 100", map[string]any{"quality": 101}},
		{"Zero step", map[string]any{"qualityStep": 0}},
		{"Floor above quality", map[string]any{"quality": 50, "qualityFloor": 60}},
		{"Negative floor", map[string]any{"qualityFloor": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWebPBudgetParamsFromMap(tt.params); err == nil {
				t.Error("Expected error for invalid parameters")
			}
		})
	}
}

func TestWebPBudgetCommand_Execute_FitsBudgetAtStartQuality(t *testing.T) {
	command, err := NewWebPBudgetCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}

	out, err := command.Execute(createTestImage(200, 100))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	w, h, format, err := decodedSize(out)
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if format != "webp" {
		t.Errorf("Expected webp output, got %s", format)
	}
	if w != 200 || h != 100 {
		t.Errorf("Expected 200x100, got %dx%d", w, h)
	}
	if len(out) > DefaultMaxBytes {
		t.Errorf("Expected output within budget, got %d bytes", len(out))
	}
	if q := command.(*WebPBudgetCommand).LastQuality(); q != DefaultQuality {
		t.Errorf("Expected small image to keep quality %d, got %d", DefaultQuality, q)
	}
}

func TestWebPBudgetCommand_Execute_DescendsToFloor(t *testing.T) {
	// a tiny budget cannot be met by noise, so every step is tried
	command, err := NewWebPBudgetCommand(map[string]any{"maxBytes": 64})
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}

	out, err := command.Execute(createNoiseJPEG(256, 256))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(out) <= 64 {
		t.Fatalf("Expected noise to exceed a 64 byte budget, got %d bytes", len(out))
	}

	// 80, 70, ... 20 are attempted; 10 would reach the floor
	if q := command.(*WebPBudgetCommand).LastQuality(); q != 20 {
		t.Errorf("Expected descent to stop at quality 20, got %d", q)
	}
}

func TestWebPBudgetCommand_Execute_ZeroFloorReachesLowestStep(t *testing.T) {
	command, err := NewWebPBudgetCommand(map[string]any{"maxBytes": 64, "qualityFloor": 0})
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}
	if _, err := command.Execute(createNoiseJPEG(128, 128)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if q := command.(*WebPBudgetCommand).LastQuality(); q != 10 {
		t.Errorf("Expected descent to stop at quality 10, got %d", q)
	}
}

func TestWebPBudgetCommand_Execute_BudgetOrFloor(t *testing.T) {
	input := createNoiseJPEG(400, 400)
	budgets := []int{4 * 1024, 20 * 1024, 60 * 1024, DefaultMaxBytes}

	for _, budget := range budgets {
		command, err := NewWebPBudgetCommand(map[string]any{"maxBytes": budget})
		if err != nil {
			t.Fatalf("Failed to create command: %v", err)
		}
		out, err := command.Execute(input)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		q := command.(*WebPBudgetCommand).LastQuality()
		if len(out) > budget && q != 20 {
			t.Errorf("budget %d: output %d bytes over budget at quality %d, expected floor-adjacent quality 20", budget, len(out), q)
		}
	}
}

func TestWebPBudgetCommand_Execute_InvalidImage(t *testing.T) {
	command, err := NewWebPBudgetCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}
	if _, err := command.Execute([]byte("garbage")); err == nil {
		t.Error("Expected error for invalid image data, got nil")
	}
}

func TestWebPBudgetCommand_RegisteredInDefaultRegistry(t *testing.T) {
	command, err := commandstructure.DefaultRegistry.Create(WebPBudgetCommandName, map[string]any{})
	if err != nil {
		t.Fatalf("Failed to create command via registry: %v", err)
	}
	if command.Name() != WebPBudgetCommandName {
		t.Errorf("Expected name %s, got %s", WebPBudgetCommandName, command.Name())
	}
}
