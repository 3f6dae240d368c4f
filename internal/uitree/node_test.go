package uitree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/droid_mon/internal/uitree/uitreetest"
)

func TestParse_StockAppInfo(t *testing.T) {
	root, err := Parse([]byte(uitreetest.StockAppInfo), nil)
	require.NoError(t, err)

	assert.Equal(t, "android.widget.FrameLayout", root.ClassName())
	assert.Equal(t, "com.android.settings", root.Package())
	require.Len(t, root.Children(), 2)

	panel := root.children[1]
	assert.Equal(t, "com.android.settings:id/control_buttons_panel", panel.ResourceID())
	require.Len(t, panel.children, 2)

	forceStop := panel.children[1]
	assert.Equal(t, "Force stop", forceStop.Text())
	assert.True(t, forceStop.Clickable())
	assert.True(t, forceStop.Enabled())
	assert.Equal(t, Bounds{X1: 540, Y1: 300, X2: 1000, Y2: 420}, forceStop.Bounds())
}

func TestParse_DisabledForceStop(t *testing.T) {
	root, err := Parse([]byte(uitreetest.DisableForceStop(uitreetest.StockAppInfo)), nil)
	require.NoError(t, err)

	panel := root.children[1]
	assert.True(t, panel.children[0].Enabled())
	assert.False(t, panel.children[1].Enabled())
}

func TestParse_TrimsAdbNoise(t *testing.T) {
	raw := "UI hierchary dumped to: /data/local/tmp/view.xml\n" + uitreetest.EmptyScreen + "\n"
	root, err := Parse([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "com.android.launcher3", root.Package())
}

func TestParse_RepairsBareAmpersand(t *testing.T) {
	raw := `<hierarchy rotation="0"><node text="Tom & Jerry" resource-id="" class="a" package="p" content-desc="" clickable="false" enabled="true" bounds="[0,0][1,1]" /></hierarchy>`
	root, err := Parse([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", root.Text())
}

func TestParse_NumericEntities(t *testing.T) {
	root, err := Parse([]byte(uitreetest.PanelOnlyAppInfo), nil)
	require.NoError(t, err)
	left := root.children[0].children[0]
	assert.Equal(t, "停止", left.Text())
}

func TestParse_MultipleTopLevelNodes(t *testing.T) {
	raw := `<hierarchy rotation="0">
  <node text="a" resource-id="" class="x" package="pkg.one" content-desc="" clickable="false" enabled="true" bounds="[0,0][10,10]" />
  <node text="b" resource-id="" class="x" package="pkg.two" content-desc="" clickable="false" enabled="true" bounds="[0,0][10,10]" />
</hierarchy>`
	root, err := Parse([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "android.view.View", root.ClassName())
	assert.Equal(t, "pkg.one", root.Package())
	assert.Len(t, root.Children(), 2)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(""), nil)
	assert.Error(t, err)

	_, err = Parse([]byte("ERROR: null root node returned by UiTestAutomationBridge."), nil)
	assert.Error(t, err)

	_, err = Parse([]byte(`<hierarchy rotation="0"></hierarchy>`), nil)
	assert.Error(t, err)
}

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("[10,20][110,220]")
	require.NoError(t, err)
	x, y := b.Center()
	assert.Equal(t, 60, x)
	assert.Equal(t, 120, y)
	assert.False(t, b.Empty())

	_, err = ParseBounds("10,20,110,220")
	assert.Error(t, err)

	zero, err := ParseBounds("[0,0][0,0]")
	require.NoError(t, err)
	assert.True(t, zero.Empty())
}

func TestActivate_TapsCenter(t *testing.T) {
	tapper := &uitreetest.RecordingTapper{}
	root, err := Parse([]byte(uitreetest.ConfirmDialog), tapper)
	require.NoError(t, err)

	var ok *Node
	root.Walk(func(n *Node) bool {
		if n.ResourceID() == "android:id/button1" {
			ok = n
			return false
		}
		return true
	})
	require.NotNil(t, ok)

	require.NoError(t, ok.Activate(context.Background()))
	assert.Equal(t, []uitreetest.Tap{{X: 750, Y: 1150}}, tapper.Taps())
}

func TestActivate_Failures(t *testing.T) {
	detached, err := Parse([]byte(uitreetest.EmptyScreen), nil)
	require.NoError(t, err)
	assert.Error(t, detached.Activate(context.Background()))

	tapper := &uitreetest.RecordingTapper{}
	noBounds, err := Parse([]byte(`<hierarchy><node text="" resource-id="" class="a" package="p" content-desc="" clickable="true" enabled="true" bounds="" /></hierarchy>`), tapper)
	require.NoError(t, err)
	assert.ErrorIs(t, noBounds.Activate(context.Background()), ErrNoBounds)

	failing := &uitreetest.RecordingTapper{Err: errors.New("input failed")}
	root, err := Parse([]byte(uitreetest.LabelOnlyAppInfo), failing)
	require.NoError(t, err)
	assert.EqualError(t, root.children[0].Activate(context.Background()), "input failed")
}

func TestIsNil(t *testing.T) {
	var n *Node
	assert.True(t, n.IsNil())
	assert.False(t, (&Node{}).IsNil())
}
