package infra

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// AdbProcessLister implements domain.ProcessLister with `ps` and `pm`.
type AdbProcessLister struct {
	shell        ShellRunner
	ownerPackage string
	logger       *zap.Logger
}

// NewProcessLister creates a lister. ownerPackage marks the companion app.
func NewProcessLister(shell ShellRunner, ownerPackage string, logger *zap.Logger) *AdbProcessLister {
	return &AdbProcessLister{shell: shell, ownerPackage: ownerPackage, logger: logger}
}

// ListRunning returns one entry per installed package with at least one
// running process, sorted by package name.
func (l *AdbProcessLister) ListRunning(ctx context.Context) ([]domain.ProcessInfo, error) {
	out, err := l.shell.Shell(ctx, "ps", "-A", "-o", "PID,RSS,NAME")
	if err != nil || !strings.Contains(out, "PID") {
		// Releases before O have no -A and print the legacy columns.
		out, err = l.shell.Shell(ctx, "ps")
		if err != nil {
			return nil, fmt.Errorf("list processes: %w", err)
		}
	}
	procs := parsePS(out)

	installed, err := l.packages(ctx, "pm", "list", "packages")
	if err != nil {
		return nil, err
	}
	system, err := l.packages(ctx, "pm", "list", "packages", "-s")
	if err != nil {
		return nil, err
	}

	byPackage := make(map[string]*domain.ProcessInfo)
	for _, p := range procs {
		pkg := packageOf(p.name)
		if _, ok := installed[pkg]; !ok {
			continue
		}
		info, ok := byPackage[pkg]
		if !ok {
			_, isSystem := system[pkg]
			info = &domain.ProcessInfo{
				PackageName: pkg,
				DisplayName: pkg,
				IsSystemApp: isSystem,
				IsOwnerApp:  l.ownerPackage != "" && pkg == l.ownerPackage,
			}
			byPackage[pkg] = info
		}
		info.PIDs = append(info.PIDs, p.pid)
		info.ResidentMemoryBytes += p.rssKB * 1024
	}

	result := make([]domain.ProcessInfo, 0, len(byPackage))
	for _, info := range byPackage {
		result = append(result, *info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PackageName < result[j].PackageName
	})

	l.logger.Debug("listed running packages",
		zap.Int("processes", len(procs)),
		zap.Int("packages", len(result)))
	return result, nil
}

func (l *AdbProcessLister) packages(ctx context.Context, args ...string) (map[string]struct{}, error) {
	out, err := l.shell.Shell(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.Join(args, " "), err)
	}
	set := make(map[string]struct{})
	for _, p := range parsePackageList(out) {
		set[p] = struct{}{}
	}
	return set, nil
}

type psEntry struct {
	pid   int
	rssKB int64
	name  string
}

// parsePS reads `ps` output using its header to locate the PID and RSS
// columns. NAME is always the last column.
func parsePS(out string) []psEntry {
	lines := strings.Split(out, "\n")
	pidCol, rssCol := -1, -1
	var entries []psEntry

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if pidCol < 0 {
			for i, f := range fields {
				switch f {
				case "PID":
					pidCol = i
				case "RSS":
					rssCol = i
				}
			}
			continue
		}
		if len(fields) <= pidCol || len(fields) <= rssCol {
			continue
		}

		pid, err := strconv.Atoi(fields[pidCol])
		if err != nil {
			continue
		}
		var rss int64
		if rssCol >= 0 {
			rss, _ = strconv.ParseInt(fields[rssCol], 10, 64)
		}
		entries = append(entries, psEntry{pid: pid, rssKB: rss, name: fields[len(fields)-1]})
	}
	return entries
}

// packageOf maps a process name such as "com.foo:remote" to its package.
func packageOf(process string) string {
	if i := strings.IndexByte(process, ':'); i >= 0 {
		return process[:i]
	}
	return process
}

// AdbPackageMetadata implements domain.ApplicationMetadata with package
// manager queries.
type AdbPackageMetadata struct {
	shell ShellRunner
}

// NewPackageMetadata creates the metadata source.
func NewPackageMetadata(shell ShellRunner) *AdbPackageMetadata {
	return &AdbPackageMetadata{shell: shell}
}

// IsSystemApp reports system image packages. Packages the device does not
// know are reported as system apps so they are never targeted.
func (m *AdbPackageMetadata) IsSystemApp(ctx context.Context, pkg string) (bool, error) {
	out, err := m.shell.Shell(ctx, "pm", "list", "packages", "-s")
	if err != nil {
		return true, fmt.Errorf("list system packages: %w", err)
	}
	if contains(parsePackageList(out), pkg) {
		return true, nil
	}

	out, err = m.shell.Shell(ctx, "pm", "list", "packages")
	if err != nil {
		return true, fmt.Errorf("list packages: %w", err)
	}
	return !contains(parsePackageList(out), pkg), nil
}

// InputMethodPackages returns packages providing an enabled keyboard.
func (m *AdbPackageMetadata) InputMethodPackages(ctx context.Context) ([]string, error) {
	out, err := m.shell.Shell(ctx, "ime", "list", "-s")
	if err != nil {
		return nil, fmt.Errorf("list input methods: %w", err)
	}
	return componentPackages(out), nil
}

// HomePackages returns packages answering the HOME intent.
func (m *AdbPackageMetadata) HomePackages(ctx context.Context) ([]string, error) {
	out, err := m.shell.Shell(ctx, "cmd", "package", "query-activities", "--brief",
		"-a", "android.intent.action.MAIN", "-c", "android.intent.category.HOME")
	if err != nil {
		return nil, fmt.Errorf("query home activities: %w", err)
	}
	return componentPackages(out), nil
}

// componentPackages collects the package part of "pkg/cls" lines.
func componentPackages(out string) []string {
	seen := make(map[string]struct{})
	var pkgs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		i := strings.IndexByte(line, '/')
		if i <= 0 || strings.ContainsAny(line[:i], " =") {
			continue
		}
		pkg := line[:i]
		if _, ok := seen[pkg]; ok {
			continue
		}
		seen[pkg] = struct{}{}
		pkgs = append(pkgs, pkg)
	}
	return pkgs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Ensure implementations satisfy the domain ports.
var (
	_ domain.ProcessLister       = (*AdbProcessLister)(nil)
	_ domain.ApplicationMetadata = (*AdbPackageMetadata)(nil)
)
