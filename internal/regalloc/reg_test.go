package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVReg_String(t *testing.T) {
	require.Equal(t, "v0", VReg(0).SetRegType(RegTypeInt).String())
	require.Equal(t, "v100", VReg(100).SetRegType(RegTypeInt).String())
	require.Equal(t, "r5", FromRealReg(5, RegTypeInt).String())
}

func Test_FromRealReg(t *testing.T) {
	r := FromRealReg(5, RegTypeInt)
	require.Equal(t, RealReg(5), r.RealReg())
	require.Equal(t, VRegID(5), r.ID())
	require.True(t, r.IsRealReg())
}

func TestVReg_SetRegType(t *testing.T) {
	v := VReg(42).SetRegType(RegTypeFloat)
	require.Equal(t, RegTypeFloat, v.RegType())
	require.Equal(t, VRegID(42), v.ID())
}
