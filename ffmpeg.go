package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/robertmaury/upscaler/upscale"
)

type FFProbeOutput struct {
	Streams []struct {
		Width          int    `json:"width"`
		Height         int    `json:"height"`
		FrameRate      string `json:"r_frame_rate"`
		FrameCount     string `json:"nb_frames"`
		FrameCountRead string `json:"nb_read_frames"`
	} `json:"streams"`
}

type VideoInfo struct {
	InputPath  string
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int64
}

func parseVideoInfoFFProbeOutput(output []byte) (*FFProbeOutput, error) {
	var probeOutput FFProbeOutput
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return nil, fmt.Errorf("parsing probe output: %v", err)
	}

	if len(probeOutput.Streams) == 0 {
		return nil, fmt.Errorf("no video streams found")
	}

	return &probeOutput, nil
}

func GetVideoInfo(ctx context.Context, inputPath string) (*VideoInfo, error) {
	cmd := NewCommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-of", "json",
		inputPath)

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	ffprobeOutput, err := parseVideoInfoFFProbeOutput(output)
	if err != nil {
		return nil, err
	}

	mainStream := ffprobeOutput.Streams[0]
	parts := strings.Split(mainStream.FrameRate, "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid framerate format")
	}

	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("parsing framerate numerator: %v", err)
	}

	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("parsing framerate denominator: %v", err)
	}

	var videoInfo VideoInfo
	videoInfo.InputPath = inputPath
	videoInfo.Width = mainStream.Width
	videoInfo.Height = mainStream.Height
	videoInfo.FrameRate = num / den

	if mainStream.FrameCount != "" && mainStream.FrameCount != "N/A" {
		// container already contains frame count, no need to count
		frameCount, err := strconv.ParseInt(mainStream.FrameCount, 10, 64)
		if err != nil {
			return nil, err
		}

		videoInfo.FrameCount = frameCount
		return &videoInfo, nil
	}
	// container doesn't have frame count, counting frames

	cmd = NewCommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-of", "json",
		inputPath)

	output, err = cmd.Output()
	if err != nil {
		return nil, err
	}

	ffprobeCountOutput, err := parseVideoInfoFFProbeOutput(output)
	if err != nil {
		return nil, err
	}

	frameCount, err := strconv.ParseInt(ffprobeCountOutput.Streams[0].FrameCountRead, 10, 64)
	if err != nil {
		return nil, err
	}

	videoInfo.FrameCount = frameCount
	return &videoInfo, nil
}

// VideoProcessor streams raw planar RGB (gbrp) frames out of a decoder
// ffmpeg and into an encoder ffmpeg running at the upscaled size.
type VideoProcessor struct {
	videoInfo VideoInfo
	options   FfmpegOptions
	scale     int
	frameSize int

	// I/O handlers
	reader *exec.Cmd
	writer *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

var frameFormat = upscale.FrameFormat{SampleType: upscale.SampleUint8, NumPlanes: 3}

func NewVideoProcessor(videoInfo *VideoInfo, options FfmpegOptions, scale int) *VideoProcessor {
	return &VideoProcessor{
		videoInfo: *videoInfo,
		options:   options,
		scale:     scale,
		frameSize: videoInfo.Width * videoInfo.Height * 3,
	}
}

func (vp *VideoProcessor) StartReading(ctx context.Context) error {
	args := []string{}
	if vp.options.HWAccelDecodeFlag != "" {
		args = append(args, "-hwaccel", vp.options.HWAccelDecodeFlag)
	}

	args = append(args,
		"-i", vp.videoInfo.InputPath,
		"-f", "rawvideo",
		"-pix_fmt", "gbrp",
		"pipe:1")

	vp.reader = exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := vp.reader.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %v", err)
	}
	vp.stdout = stdout

	return vp.reader.Start()
}

func (vp *VideoProcessor) StartWriting(ctx context.Context, outputPath string, audioPath string) error {
	encoder := vp.options.HWAccelEncodeFlag
	if encoder == "" {
		encoder = "libx264"
	}

	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "gbrp",
		"-video_size", fmt.Sprintf("%dx%d", vp.videoInfo.Width*vp.scale, vp.videoInfo.Height*vp.scale),
		"-framerate", fmt.Sprintf("%f", vp.videoInfo.FrameRate),
		"-i", "pipe:0",
	}

	if audioPath != "" {
		args = append(args, "-i", audioPath, "-c:a", "copy")
	}

	args = append(args,
		"-c:v", encoder,
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath)

	vp.writer = exec.CommandContext(ctx, "ffmpeg", args...)

	stdin, err := vp.writer.StdinPipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %v", err)
	}
	vp.stdin = stdin

	return vp.writer.Start()
}

// ReadFrame pulls one gbrp frame off the decoder and reorders its
// planes into the host frame layout (R, G, B).
func (vp *VideoProcessor) ReadFrame() (*upscale.Frame, error) {
	buf := make([]byte, vp.frameSize)
	if _, err := io.ReadFull(vp.stdout, buf); err != nil {
		return nil, err
	}

	size := vp.videoInfo.Width * vp.videoInfo.Height
	return &upscale.Frame{
		Width:  vp.videoInfo.Width,
		Height: vp.videoInfo.Height,
		Format: frameFormat,
		U8: [][]uint8{
			buf[2*size : 3*size], // R
			buf[0:size],          // G
			buf[size : 2*size],   // B
		},
	}, nil
}

// WriteFrame pushes an upscaled frame to the encoder in gbrp order.
func (vp *VideoProcessor) WriteFrame(frame *upscale.Frame) error {
	if frame.Format.SampleType != upscale.SampleUint8 || len(frame.U8) != 3 {
		return fmt.Errorf("encoder expects 3 uint8 planes")
	}

	for _, plane := range [][]uint8{frame.U8[1], frame.U8[2], frame.U8[0]} {
		if _, err := vp.stdin.Write(plane); err != nil {
			return err
		}
	}
	return nil
}

func (vp *VideoProcessor) Close() error {
	var errs *multierror.Error

	if vp.stdin != nil {
		if err := vp.stdin.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing stdin: %v", err))
		}
	}

	if vp.writer != nil {
		if err := vp.writer.Wait(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("waiting for writer: %v", err))
		}
	}

	if vp.stdout != nil {
		if err := vp.stdout.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing stdout: %v", err))
		}
	}

	if vp.reader != nil {
		if err := vp.reader.Wait(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("waiting for reader: %v", err))
		}
	}

	return errs.ErrorOrNil()
}

// Getters for video properties
func (vp *VideoProcessor) Width() int         { return vp.videoInfo.Width }
func (vp *VideoProcessor) Height() int        { return vp.videoInfo.Height }
func (vp *VideoProcessor) FrameRate() float64 { return vp.videoInfo.FrameRate }
func (vp *VideoProcessor) FrameSize() int     { return vp.frameSize }

func ExtractAudio(ctx context.Context, inputPath string, outputPath string) (string, error) {
	return CreateAndRunCommandContext(ctx, "ffmpeg", "-i", inputPath, "-vn", "-acodec", "copy", "-y", outputPath)
}
