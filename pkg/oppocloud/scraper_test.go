package oppocloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleSnapshot_ReadFailureMeansExpired(t *testing.T) {
	s := testScraper()

	_, err := s.settleSnapshot(stateSnapshot{}, fmt.Errorf("%w: when reading page state", ErrCommunication))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.Contains(t, err.Error(), expiredMsg)
}

func TestSettleSnapshot_AbsentStateMeansExpired(t *testing.T) {
	s := testScraper()

	_, err := s.settleSnapshot(stateSnapshot{Present: false}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))
}

func TestSettleSnapshot_PresentEmptyListIsEmptyAccount(t *testing.T) {
	s := testScraper()

	devices, err := s.settleSnapshot(stateSnapshot{Present: true}, nil)
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestSettleSnapshot_LateFillParsesWithPointAlignment(t *testing.T) {
	s := testScraper()

	devices, err := s.settleSnapshot(stateSnapshot{
		Present: true,
		DeviceList: []rawDevice{
			{DeviceName: "A", OnlineStatus: 1, POI: "Home · now"},
			{DeviceName: "B"},
		},
		Points: []rawPoint{{Lat: 31.2, Lng: 121.4}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "A", devices[0].Model)
	require.NotNil(t, devices[0].Latitude)
	assert.InDelta(t, 31.2, *devices[0].Latitude, 0.01)

	// The second entry has no aligned point and no coordinate field.
	assert.Equal(t, "B", devices[1].Model)
	assert.Nil(t, devices[1].Latitude)
	assert.Nil(t, devices[1].Longitude)
}
