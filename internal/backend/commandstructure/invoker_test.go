package commandstructure

import (
	"errors"
	"strings"
	"testing"
)

func TestCommandInvoker_EmptyCommandList(t *testing.T) {
	invoker := NewCommandInvoker("empty.png", []Command{})
	testData := []byte("test data")
	result, err := invoker.Execute(testData)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if string(result) != string(testData) {
		t.Error("Expected result to match input for empty command list")
	}
}

func TestCommandInvoker_MultipleCommands(t *testing.T) {
	cmd1 := &mockCommand{
		name: "Command1",
		executeFunc: func(data []byte) ([]byte, error) {
			return append(data, []byte("-cmd1")...), nil
		},
	}
	cmd2 := &mockCommand{
		name: "Command2",
		executeFunc: func(data []byte) ([]byte, error) {
			return append(data, []byte("-cmd2")...), nil
		},
	}

	invoker := NewCommandInvoker("photo.jpg", []Command{cmd1, cmd2})
	result, err := invoker.Execute([]byte("start"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := "start-cmd1-cmd2"
	if string(result) != expected {
		t.Errorf("Expected '%s', got '%s'", expected, string(result))
	}
}

func TestCommandInvoker_ErrorInMiddle(t *testing.T) {
	called := false
	cmd1 := newMockCommand("Command1")
	cmd2 := newMockCommandWithError("Command2", errors.New("command2 failed"))
	cmd3 := &mockCommand{
		name: "Command3",
		executeFunc: func(data []byte) ([]byte, error) {
			called = true
			return data, nil
		},
	}

	invoker := NewCommandInvoker("photo.jpg", []Command{cmd1, cmd2, cmd3})
	_, err := invoker.Execute([]byte("test"))
	if err == nil {
		t.Fatal("Expected error when command fails")
	}
	if !strings.Contains(err.Error(), "Command2") {
		t.Errorf("Expected error to name the failing command, got %v", err)
	}
	if called {
		t.Error("Expected commands after the failing one not to run")
	}
}
