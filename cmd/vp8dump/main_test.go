package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/vp8"
	"github.com/deepteams/vp8/internal/container"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func source(key bool) *vp8.FrameSource {
	src := &vp8.FrameSource{
		Tag: vp8.FrameTag{KeyFrame: key, ShowFrame: true},
		Header: vp8.FrameHeader{
			NumPartitions:       2,
			Quant:               vp8.QuantIndices{YAC: 50},
			Filter:              vp8.FilterHeader{Level: 12},
			RefreshEntropyProbs: true,
			RefreshLast:         true,
			MBNoCoeffSkip:       true,
			ProbSkipFalse:       100,
			ProbIntra:           60,
			ProbLast:            200,
			ProbGolden:          128,
		},
		Macroblocks: make([]vp8.Macroblock, 4),
	}
	if key {
		src.Tag.Width, src.Tag.Height = 32, 20
	}
	for i := range src.Macroblocks {
		h := &src.Macroblocks[i].Header
		h.Skip = i != 3
		if !key {
			h.Ref = vp8.LastFrame
			h.YMode = vp8.ZeroMV
		}
	}
	src.Macroblocks[3].Residual.Coeffs[24][0] = 7
	if key {
		src.Macroblocks[1].Header.YMode = vp8.VPred
	} else {
		src.Macroblocks[2].Header.YMode = vp8.NewMV
		src.Macroblocks[2].Header.MV = vp8.MotionVector{Row: 6, Col: -10}
	}
	return src
}

// writeStream writes a key frame and an inter frame to an IVF file.
func writeStream(t *testing.T) string {
	fw := vp8.NewFrameWriter()
	var buf bytes.Buffer
	iw, err := container.NewIVFWriter(&buf, container.IVFHeader{Width: 32, Height: 20, RateNum: 30, RateDen: 1, FrameCount: 2})
	require.NoError(t, err)
	for i, key := range []bool{true, false} {
		data, err := fw.WriteFrame(source(key))
		require.NoError(t, err)
		require.NoError(t, iw.WriteFrame(uint64(i), data))
	}
	path := filepath.Join(t.TempDir(), "stream.ivf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	path := writeStream(t)
	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Format:       ivf")
	assert.Contains(t, out, "Dimensions:   32x20")
	assert.Contains(t, out, "Frames:       2 (1 key, 0 hidden)")
	assert.Contains(t, out, "Macroblocks:  8 (6 skipped)")
	assert.NotContains(t, out, "Failed")
}

func TestInfo_JSON(t *testing.T) {
	path := writeStream(t)
	out, err := run(t, "info", "--json", path)
	require.NoError(t, err)

	var info streamInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "ivf", info.Format)
	assert.Equal(t, 2, info.Frames)
	assert.Equal(t, 1, info.KeyFrames)
	assert.Equal(t, 3, info.Modes["DC_PRED"])
	assert.Equal(t, 3, info.Modes["ZEROMV"])
	assert.Equal(t, 1, info.Modes["V_PRED"])
	assert.Equal(t, 1, info.Modes["NEWMV"])
}

func TestHeaders(t *testing.T) {
	path := writeStream(t)
	out, err := run(t, "headers", path)
	require.NoError(t, err)
	assert.Contains(t, out, "frame 0 K 32x20 (2x2 MBs)")
	assert.Contains(t, out, "frame 1 I 32x20 (2x2 MBs)")
	assert.Contains(t, out, "quant: y_ac=50")
	assert.Contains(t, out, "filter: normal level=12 sharpness=0")
	assert.Contains(t, out, "partitions=2 refresh=probs,last")
	assert.Contains(t, out, "inter: intra=60 last=200")
}

func TestHeaders_JSONLimit(t *testing.T) {
	path := writeStream(t)
	out, err := run(t, "headers", "--json", "--limit", "1", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	var rec headerRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, 0, rec.Index)
	require.NotNil(t, rec.Tag)
	assert.True(t, rec.Tag.KeyFrame)
	require.NotNil(t, rec.Header)
	assert.Equal(t, 2, rec.Header.NumPartitions)
	assert.Empty(t, rec.Error)
}

func TestMacroblocks(t *testing.T) {
	path := writeStream(t)
	out, err := run(t, "macroblocks", "--parallel", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(0,1) seg=0 q=50 lf=12 skip V_PRED/DC_PRED")
	assert.Contains(t, out, "(1,0) seg=0 q=50 lf=12 skip last NEWMV mv=(6,-10)")
	assert.Contains(t, out, "(1,1) seg=0 q=50 lf=12 coded=1 last ZEROMV")
}

func TestMacroblocks_JSON(t *testing.T) {
	path := writeStream(t)
	out, err := run(t, "macroblocks", "--json", path)
	require.NoError(t, err)

	var recs []macroblockRecord
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var rec macroblockRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 8)
	assert.Equal(t, "V_PRED", recs[1].YMode)
	assert.Equal(t, "intra", recs[1].Ref)
	assert.Equal(t, []int16{6, -10}, recs[6].MV)
	assert.Equal(t, uint32(1<<24), recs[7].NonZero)
}

func TestCorruptFrame(t *testing.T) {
	fw := vp8.NewFrameWriter()
	key, err := fw.WriteFrame(source(true))
	require.NoError(t, err)
	inter, err := fw.WriteFrame(source(false))
	require.NoError(t, err)

	var buf bytes.Buffer
	iw, err := container.NewIVFWriter(&buf, container.IVFHeader{Width: 32, Height: 20})
	require.NoError(t, err)
	require.NoError(t, iw.WriteFrame(0, key[:12]))
	require.NoError(t, iw.WriteFrame(1, inter))
	path := filepath.Join(t.TempDir(), "bad.ivf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	out, err := run(t, "headers", "--resync", path)
	require.NoError(t, err)
	assert.Contains(t, out, "frame 0: vp8: truncated stream")
	assert.Contains(t, out, "frame 1: vp8: awaiting key frame")

	out, err = run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Failed:       2")
}

func TestWebPInput(t *testing.T) {
	data, err := vp8.NewFrameWriter().WriteFrame(source(true))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "still.webp")
	require.NoError(t, os.WriteFile(path, container.BuildWebP(data), 0o644))

	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Format:       webp")
	assert.Contains(t, out, "Frames:       1 (1 key, 0 hidden)")
}

func TestErrors(t *testing.T) {
	_, err := run(t, "info", filepath.Join(t.TempDir(), "missing.ivf"))
	assert.Error(t, err)

	_, err = run(t, "headers")
	assert.Error(t, err)
}
