//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/forcestop"
	"github.com/eliteGoblin/focusd/droid_mon/internal/infra"
	"github.com/eliteGoblin/focusd/droid_mon/internal/uitree/uitreetest"
	"github.com/eliteGoblin/focusd/droid_mon/internal/variant"
)

func writeRecording(dir string, records ...map[string]string) string {
	var lines []string
	for _, r := range records {
		b, err := json.Marshal(r)
		Expect(err).NotTo(HaveOccurred())
		lines = append(lines, string(b))
	}
	path := filepath.Join(dir, "session.jsonl")
	Expect(os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0600)).To(Succeed())
	return path
}

var _ = Describe("Replaying a recorded session", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "droidmon-replay-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	run := func(info domain.DeviceInfo, path string) (domain.ForceStopState, int) {
		logger := zap.NewNop()
		tapper := infra.NewLoggingTapper(logger)
		src, err := infra.OpenReplay(path, tapper, 0, logger)
		Expect(err).NotTo(HaveOccurred())

		resolver, err := infra.NewCatalogResolver(info.Locale)
		Expect(err).NotTo(HaveOccurred())
		session := forcestop.NewSession(variant.NewSelector(info, variant.DefaultProfile(), resolver, logger), logger)

		events, err := src.Events(context.Background())
		Expect(err).NotTo(HaveOccurred())
		session.Arm("com.example.game")
		Expect(session.Run(context.Background(), events)).To(Succeed())

		st, _ := session.Current()
		return st, tapper.Count()
	}

	It("should complete the protocol on a modern device", func() {
		path := writeRecording(tmpDir,
			map[string]string{"type": "window_state_changed", "class": "com.android.launcher3.Launcher", "hierarchy": uitreetest.EmptyScreen},
			map[string]string{"type": "window_state_changed", "class": "com.android.settings.applications.InstalledAppDetailsTop", "hierarchy": uitreetest.StockAppInfo},
			map[string]string{"type": "window_content_changed", "class": "com.android.settings.applications.InstalledAppDetailsTop", "hierarchy": uitreetest.StockAppInfo},
			map[string]string{"type": "window_state_changed", "class": "android.app.AlertDialog", "hierarchy": uitreetest.ConfirmDialog},
		)

		st, taps := run(domain.DeviceInfo{SDKLevel: 30, Model: "Pixel 7", Locale: "en-US"}, path)
		Expect(st.Status).To(Equal(domain.StatusDone))
		Expect(taps).To(Equal(2))
	})

	It("should find the button by label on a legacy device", func() {
		path := writeRecording(tmpDir,
			map[string]string{"type": "window_state_changed", "class": "com.android.settings.applications.InstalledAppDetailsTop", "hierarchy": uitreetest.LabelOnlyAppInfo},
			map[string]string{"type": "window_state_changed", "class": "android.app.AlertDialog", "hierarchy": uitreetest.ConfirmDialog},
		)

		st, taps := run(domain.DeviceInfo{SDKLevel: 16, Locale: "en-GB"}, path)
		Expect(st.Status).To(Equal(domain.StatusDone))
		Expect(taps).To(Equal(2))
	})

	It("should stop short when the dialog is never recorded", func() {
		path := writeRecording(tmpDir,
			map[string]string{"type": "window_state_changed", "class": "com.android.settings.applications.InstalledAppDetailsTop", "hierarchy": uitreetest.StockAppInfo},
		)

		st, taps := run(domain.DeviceInfo{SDKLevel: 30, Locale: "en-US"}, path)
		Expect(st.Status).To(Equal(domain.StatusWaitingForConfirm))
		Expect(taps).To(Equal(1))
	})
})
