package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringRendersHex(t *testing.T) {
	var id PeerID
	id[0] = 0xab
	id[31] = 0xcd
	require.Equal(t, "ab"+"000000000000000000000000000000000000000000000000000000000000"+"cd", id.String())
}

func TestLessIsTotalOrder(t *testing.T) {
	a := PeerID{0x01}
	b := PeerID{0x02}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.False(t, a.Less(a))
}

func TestXORDistanceSelfIsZero(t *testing.T) {
	a := PeerID{1, 2, 3}
	d := XORDistance(a, a)
	require.Equal(t, [Size]byte{}, d)
}

func TestXORDistanceIsSymmetric(t *testing.T) {
	a := PeerID{0x0f, 0xf0}
	b := PeerID{0xf0, 0x0f}
	require.Equal(t, XORDistance(a, b), XORDistance(b, a))
}

func TestCommonPrefixLenAllZero(t *testing.T) {
	var d [Size]byte
	require.Equal(t, Size*8, CommonPrefixLen(d))
}

func TestCommonPrefixLenFirstBitSet(t *testing.T) {
	var d [Size]byte
	d[0] = 0x80
	require.Equal(t, 0, CommonPrefixLen(d))
}

func TestCommonPrefixLenLaterByte(t *testing.T) {
	var d [Size]byte
	d[1] = 0x01
	require.Equal(t, 15, CommonPrefixLen(d))
}

func TestPeerIDFromBytesRejectsWrongLength(t *testing.T) {
	_, ok := PeerIDFromBytes([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestPeerIDFromBytesRoundTrip(t *testing.T) {
	want := PeerID{9, 9, 9}
	got, ok := PeerIDFromBytes(want.Bytes())
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestVertexIDFromBytesRoundTrip(t *testing.T) {
	want := VertexID{4, 5, 6}
	got, ok := VertexIDFromBytes(want.Bytes())
	require.True(t, ok)
	require.Equal(t, want, got)
}
