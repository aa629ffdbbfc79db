package oppocloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDetailMarkup = `
<div class="handle-header">
  <div class="handle-header-left"><i class="back"></i></div>
</div>
<div class="device-name">
  <span class="device-dian online"></span>
  <span>OPPO Reno 11</span>
</div>
<div class="device-address">人民广场 · 5分钟前</div>
<div class="device-battery">67%</div>
`

func TestParseDetailMarkup(t *testing.T) {
	raw, err := parseDetailMarkup(sampleDetailMarkup)
	require.NoError(t, err)

	assert.Equal(t, "OPPO Reno 11", raw.DeviceName)
	assert.Equal(t, 1, raw.OnlineStatus)
	assert.Equal(t, "人民广场 · 5分钟前", raw.POI)
	assert.Equal(t, "67%", raw.Battery)
}

func TestParseDetailMarkup_Offline(t *testing.T) {
	markup := `
<div class="device-name">
  <span class="device-dian"></span>
  <span>OnePlus 12</span>
</div>
<div class="device-address">家</div>
`
	raw, err := parseDetailMarkup(markup)
	require.NoError(t, err)

	assert.Equal(t, "OnePlus 12", raw.DeviceName)
	assert.Equal(t, 0, raw.OnlineStatus)
	assert.Equal(t, "家", raw.POI)
	assert.Empty(t, raw.Battery)
}

func TestParseDetailMarkup_EndToEndParse(t *testing.T) {
	raw, err := parseDetailMarkup(sampleDetailMarkup)
	require.NoError(t, err)

	dev := testScraper().parseDevice(raw, nil)

	assert.Equal(t, "OPPO Reno 11", dev.Model)
	assert.True(t, dev.IsOnline)
	assert.Equal(t, "人民广场", dev.LocationName)
	assert.Equal(t, "5分钟前", dev.LastSeen)
	assert.Equal(t, 67, dev.BatteryLevel)
	assert.Nil(t, dev.Latitude)
}

func TestParseDetailMarkup_EmptyFragment(t *testing.T) {
	raw, err := parseDetailMarkup("")
	require.NoError(t, err)
	assert.Empty(t, raw.DeviceName)
}
