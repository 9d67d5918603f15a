package plugins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestViewNPM verifies that npm view JSON is decoded into Info.
func TestViewNPM(t *testing.T) {
	f := &fakePM{viewOut: `{
  "name": "@kb-labs/plugin-mind",
  "version": "1.4.0",
  "description": "Mind",
  "dist-tags": {"latest": "1.4.0", "next": "1.5.0-rc.1"},
  "versions": ["1.3.0", "1.4.0", "1.5.0-rc.1"]
}`}
	mgr, _ := newManager(t, f)

	info, err := mgr.View(context.Background(), "@kb-labs/plugin-mind")
	require.NoError(t, err)
	assert.Equal(t, []string{"view:@kb-labs/plugin-mind,--json"}, f.calls)
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, "1.5.0-rc.1", info.DistTags["next"])
	assert.Len(t, info.Versions, 3)
}

// TestViewYarnEnvelopeAndSingleVersion verifies that the yarn inspect envelope is unwrapped and
// a lone version string reads as a list.
func TestViewYarnEnvelopeAndSingleVersion(t *testing.T) {
	f := &fakePM{viewOut: `{"type":"inspect","data":{"name":"left-pad","version":"1.3.0","versions":"1.3.0"}}`}
	mgr, _ := newManager(t, f)

	info, err := mgr.View(context.Background(), "left-pad")
	require.NoError(t, err)
	assert.Equal(t, "left-pad", info.Name)
	assert.Equal(t, versions{"1.3.0"}, info.Versions)
}

// TestViewBadOutput verifies that output that is not package JSON is an error.
func TestViewBadOutput(t *testing.T) {
	for _, out := range []string{"", "npm ERR! 404", `{"versions":1}`} {
		mgr, _ := newManager(t, &fakePM{viewOut: out})
		_, err := mgr.View(context.Background(), "x")
		assert.Error(t, err, out)
	}
}
