package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

// Codec converts between container formats and normalized PCM segments. The
// mixing pipeline depends on this interface only, so tests run against an
// in-memory fake and deployments can swap the binary-backed implementation.
type Codec interface {
	// Available reports whether the codec can run at all, checked once at
	// startup.
	Available() error
	// Decode converts an encoded clip into a normalized PCM segment. ext is
	// the source extension including the dot, used as a container hint.
	Decode(ctx context.Context, data []byte, ext string) (*Segment, error)
	// EncodeMP3 renders a segment as an MP3 at the given bitrate.
	EncodeMP3(ctx context.Context, seg *Segment, bitrateKbps int) ([]byte, error)
	// MuxReplaceAudio replaces the audio track of a video with the given MP3
	// payload, copying the video stream untouched.
	MuxReplaceAudio(ctx context.Context, video []byte, videoExt string, audioMP3 []byte) ([]byte, error)
}

// FFmpegCodec shells out to an ffmpeg binary for all conversions.
type FFmpegCodec struct {
	ffmpegPath string
	tempDir    string
	logger     *zap.Logger
}

// NewFFmpegCodec creates a codec backed by the ffmpeg binary at the given
// path. An empty path resolves "ffmpeg" from PATH.
func NewFFmpegCodec(ffmpegPath, tempDir string, logger *zap.Logger) *FFmpegCodec {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegCodec{
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
		logger:     logger,
	}
}

// Available checks that the ffmpeg binary can be resolved
func (c *FFmpegCodec) Available() error {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %q: %w", c.ffmpegPath, err)
	}
	return nil
}

// Decode converts an encoded clip into a normalized PCM segment
func (c *FFmpegCodec) Decode(ctx context.Context, data []byte, ext string) (*Segment, error) {
	in, err := c.writeTemp(data, ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(in)

	out := strings.TrimSuffix(in, ext) + ".decoded.wav"
	defer os.Remove(out)

	if err := c.run(ctx, "-i", in,
		"-vn",
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-ac", fmt.Sprintf("%d", NumChannels),
		"-c:a", "pcm_s16le",
		"-y", out,
	); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ext, err)
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("open decoded wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decode %s: ffmpeg produced an invalid wav", ext)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read decoded pcm: %w", err)
	}
	return FromIntBuffer(buf)
}

// EncodeMP3 renders a segment as an MP3 at the given bitrate
func (c *FFmpegCodec) EncodeMP3(ctx context.Context, seg *Segment, bitrateKbps int) ([]byte, error) {
	in, err := c.writeSegmentWAV(seg)
	if err != nil {
		return nil, err
	}
	defer os.Remove(in)

	out := strings.TrimSuffix(in, ".wav") + ".mp3"
	defer os.Remove(out)

	if err := c.run(ctx, "-i", in,
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-y", out,
	); err != nil {
		return nil, fmt.Errorf("encode mp3: %w", err)
	}
	return os.ReadFile(out)
}

// MuxReplaceAudio replaces the audio track of a video with an MP3 payload
func (c *FFmpegCodec) MuxReplaceAudio(ctx context.Context, video []byte, videoExt string, audioMP3 []byte) ([]byte, error) {
	videoIn, err := c.writeTemp(video, videoExt)
	if err != nil {
		return nil, err
	}
	defer os.Remove(videoIn)

	audioIn, err := c.writeTemp(audioMP3, ".mp3")
	if err != nil {
		return nil, err
	}
	defer os.Remove(audioIn)

	out := strings.TrimSuffix(videoIn, videoExt) + ".muxed.mp4"
	defer os.Remove(out)

	if err := c.run(ctx, "-i", videoIn, "-i", audioIn,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y", out,
	); err != nil {
		return nil, fmt.Errorf("mux video: %w", err)
	}
	return os.ReadFile(out)
}

func (c *FFmpegCodec) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, append([]string{"-hide_banner", "-nostdin"}, args...)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	c.logger.Debug("running ffmpeg", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 512))
	}
	return nil
}

func (c *FFmpegCodec) writeTemp(data []byte, ext string) (string, error) {
	f, err := os.CreateTemp(c.tempDir, "dub-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

func (c *FFmpegCodec) writeSegmentWAV(seg *Segment) (string, error) {
	f, err := os.CreateTemp(c.tempDir, "dub-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	enc := wav.NewEncoder(f, SampleRate, BitDepth, NumChannels, 1)
	if err := enc.Write(seg.IntBuffer()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp wav: %w", err)
	}
	return f.Name(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
