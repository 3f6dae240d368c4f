//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/forcestop"
	"github.com/eliteGoblin/focusd/droid_mon/internal/infra"
	"github.com/eliteGoblin/focusd/droid_mon/internal/policy"
	"github.com/eliteGoblin/focusd/droid_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/droid_mon/internal/variant"
	"github.com/eliteGoblin/focusd/droid_mon/test/fixtures"
)

const (
	ownerPkg = "com.example.companion"
	gamePkg  = "com.example.game"
	chatPkg  = "com.example.chat"
	newsPkg  = "com.example.news"
)

func deviceApps() []fixtures.App {
	return []fixtures.App{
		{Package: "com.android.systemui", RSSKB: 180000, System: true, Running: true},
		{Package: "com.google.android.inputmethod.latin", RSSKB: 90000, Running: true},
		{Package: "com.android.launcher3", RSSKB: 120000, Running: true},
		{Package: "com.google.android.deskclock", RSSKB: 40000, Running: true},
		{Package: ownerPkg, RSSKB: 60000, Running: true},
		{Package: gamePkg, RSSKB: 300000, Running: true},
		{Package: chatPkg, RSSKB: 150000, Running: true},
		{Package: newsPkg, RSSKB: 50000, Running: true},
		{Package: "com.example.installed", RSSKB: 10000},
	}
}

// stack is the full pipeline wired the way the CLI wires it, against a
// fake device.
type stack struct {
	device  *fixtures.FakeDevice
	session *forcestop.Session
	killer  *usecase.KillerImpl
	booster *usecase.BoosterImpl
	history *infra.HistoryStore
	cancel  context.CancelFunc
}

func newStack(device *fixtures.FakeDevice, dataDir string, timeout time.Duration) *stack {
	logger := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())

	info, err := infra.NewDeviceInspector(device, "").Inspect(ctx)
	Expect(err).NotTo(HaveOccurred())
	resolver, err := infra.NewCatalogResolver(info.Locale)
	Expect(err).NotTo(HaveOccurred())

	selector := variant.NewSelector(info, variant.DefaultProfile(), resolver, logger)
	session := forcestop.NewSession(selector, logger)

	source := infra.NewSnapshotSource(device, device, 5*time.Millisecond, logger)
	events, err := source.Events(ctx)
	Expect(err).NotTo(HaveOccurred())
	go func() { _ = session.Run(ctx, events) }()

	history, err := infra.OpenHistory(filepath.Join(dataDir, "history.db"),
		infra.NewHistoryKeyFile(filepath.Join(dataDir, ".history.key")))
	Expect(err).NotTo(HaveOccurred())

	killer := usecase.NewKiller(session, infra.NewNavigator(device, logger), history,
		usecase.KillerOptions{PollInterval: 5 * time.Millisecond, Timeout: timeout}, logger)

	lister := infra.NewProcessLister(device, ownerPkg, logger)
	policies := policy.NewPolicyStore(policy.Options{
		OwnerPackage: ownerPkg,
		Metadata:     infra.NewPackageMetadata(device),
		Logger:       logger,
	})

	return &stack{
		device:  device,
		session: session,
		killer:  killer,
		booster: usecase.NewBooster(lister, policies, killer, logger),
		history: history,
		cancel:  cancel,
	}
}

func (s *stack) Close() {
	s.cancel()
	_ = s.history.Close()
}

var _ = Describe("Force stop over the App Info screen", func() {
	var (
		tmpDir string
		device *fixtures.FakeDevice
		s      *stack
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "droidmon-integration-*")
		Expect(err).NotTo(HaveOccurred())

		device = fixtures.NewFakeDevice(deviceApps()...)
		device.IMEs = []string{"com.google.android.inputmethod.latin"}
		device.Homes = []string{"com.android.launcher3"}
	})

	AfterEach(func() {
		if s != nil {
			s.Close()
			s = nil
		}
		os.RemoveAll(tmpDir)
	})

	Describe("KillApp", func() {
		Context("when the device follows the protocol", func() {
			It("should stop the app and record the attempt", func() {
				s = newStack(device, tmpDir, 3*time.Second)

				result, err := s.killer.KillApp(context.Background(), domain.TargetRequest{PackageName: gamePkg})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome).To(Equal(domain.OutcomeStopped))
				Expect(result.LastStatus).To(Equal(domain.StatusDone))
				Expect(device.Running(gamePkg)).To(BeFalse())
				Expect(device.Taps()).To(Equal(2))

				recent, err := s.history.Recent(10)
				Expect(err).NotTo(HaveOccurred())
				Expect(recent).To(HaveLen(1))
				Expect(recent[0].ID).To(Equal(result.ID))
				Expect(recent[0].Outcome).To(Equal(domain.OutcomeStopped))
			})

			It("should stop apps one after another", func() {
				s = newStack(device, tmpDir, 3*time.Second)

				for _, pkg := range []string{gamePkg, chatPkg} {
					result, err := s.killer.KillApp(context.Background(), domain.TargetRequest{PackageName: pkg})
					Expect(err).NotTo(HaveOccurred())
					Expect(result.Stopped()).To(BeTrue(), pkg)
				}
				Expect(device.Running(gamePkg)).To(BeFalse())
				Expect(device.Running(chatPkg)).To(BeFalse())
				Expect(device.Running(newsPkg)).To(BeTrue())
			})
		})

		Context("when the package is not installed", func() {
			It("should report a navigation failure without tapping", func() {
				s = newStack(device, tmpDir, 3*time.Second)

				result, err := s.killer.KillApp(context.Background(), domain.TargetRequest{PackageName: "com.not.installed"})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome).To(Equal(domain.OutcomeNavigationFailed))
				Expect(device.Taps()).To(BeZero())
			})
		})

		Context("when the confirmation dialog never appears", func() {
			It("should time out waiting for the confirmation", func() {
				device.Unresponsive = true
				s = newStack(device, tmpDir, 300*time.Millisecond)

				result, err := s.killer.KillApp(context.Background(), domain.TargetRequest{PackageName: gamePkg})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome).To(Equal(domain.OutcomeTimedOut))
				Expect(result.LastStatus).To(Equal(domain.StatusWaitingForConfirm))
				Expect(device.Running(gamePkg)).To(BeTrue())

				_, armed := s.session.Current()
				Expect(armed).To(BeFalse())
			})
		})
	})

	Describe("Boost", func() {
		It("should stop unprotected apps largest first", func() {
			s = newStack(device, tmpDir, 3*time.Second)

			result, err := s.booster.Boost(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Errors).To(BeEmpty())

			var order []string
			for _, k := range result.Kills {
				Expect(k.Stopped()).To(BeTrue(), k.Package)
				order = append(order, k.Package)
			}
			Expect(order).To(Equal([]string{gamePkg, chatPkg, newsPkg}))

			Expect(result.Skipped).To(ConsistOf(
				"com.android.systemui",
				"com.google.android.inputmethod.latin",
				"com.android.launcher3",
				"com.google.android.deskclock",
				ownerPkg,
			))
			for _, pkg := range result.Skipped {
				Expect(device.Running(pkg)).To(BeTrue(), pkg)
			}
		})
	})

	Describe("Watcher", func() {
		It("should stop a blocked app whenever it starts", func() {
			s = newStack(device, tmpDir, 3*time.Second)

			w := daemon.NewWatcher(
				daemon.WatcherConfig{SweepInterval: 20 * time.Millisecond, HeartbeatInterval: time.Hour},
				s.booster,
				policy.NewPackageList([]string{"com.example.g*"}),
				infra.NewThermalProbe(device),
				nil,
				zap.NewNop(),
			)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = w.Run(ctx) }()

			Eventually(func() bool { return device.Running(gamePkg) }, 5*time.Second, 10*time.Millisecond).Should(BeFalse())

			device.Start(gamePkg)
			Eventually(func() bool { return device.Running(gamePkg) }, 5*time.Second, 10*time.Millisecond).Should(BeFalse())

			Expect(device.Running(chatPkg)).To(BeTrue())
			Expect(w.Stats().Stopped).To(BeNumerically(">=", 2))
		})
	})
})
