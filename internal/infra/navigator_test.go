package infra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const amStartCmd = "am start -a android.settings.APPLICATION_DETAILS_SETTINGS -d package:com.example.game -f 0x44808000"

func TestNavigator_OpenAppInfo(t *testing.T) {
	shell := newFakeShell().on(amStartCmd, "Starting: Intent { act=android.settings.APPLICATION_DETAILS_SETTINGS dat=package:com.example.game flg=0x44808000 }")

	err := NewNavigator(shell, zap.NewNop()).OpenAppInfo(context.Background(), "com.example.game")

	assert.NoError(t, err)
	assert.Equal(t, []string{amStartCmd}, shell.Calls())
}

func TestNavigator_OpenAppInfo_Failures(t *testing.T) {
	tests := []struct {
		name  string
		pkg   string
		shell *fakeShell
	}{
		{
			name:  "invalid package never reaches the shell",
			pkg:   "com.example;reboot",
			shell: newFakeShell(),
		},
		{
			name:  "am reports error",
			pkg:   "com.example.game",
			shell: newFakeShell().on(amStartCmd, "Starting: Intent { ... }\nError: Activity not started, unable to resolve Intent"),
		},
		{
			name:  "shell fails",
			pkg:   "com.example.game",
			shell: newFakeShell(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNavigator(tt.shell, zap.NewNop()).OpenAppInfo(context.Background(), tt.pkg)
			assert.Error(t, err)
		})
	}
}

func TestAppInfoFlags(t *testing.T) {
	assert.Equal(t, 0x44808000, appInfoFlags)
}
