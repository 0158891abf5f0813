package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

type Worker struct {
	id         int
	logger     *logrus.Entry
	poolWorker *PoolWorker

	mu         sync.RWMutex
	info       WorkerInfo
	framesDone *atomic.Int64
	frameTotal *atomic.Int64
}

type WorkerInfo struct {
	ID       int     `json:"id"`
	Active   bool    `json:"active"`
	Step     string  `json:"step"`
	Progress float64 `json:"progress"`
	Video    *Video  `json:"video,omitempty"`
}

type ProcessVideoOutput struct {
	err                    error
	skip                   bool
	videoNotFound          bool
	outputFileAlreadyExist bool
}

func NewWorker(id int, logger *logrus.Entry, poolWorker *PoolWorker) *Worker {
	return &Worker{
		id:         id,
		logger:     logger,
		poolWorker: poolWorker,
		info:       WorkerInfo{ID: id},
		framesDone: atomic.NewInt64(0),
		frameTotal: atomic.NewInt64(0),
	}
}

func (w *Worker) start(workChannel <-chan Video) {
	for video := range workChannel {
		w.poolWorker.waitGroup.Add(1)
		w.setActive(true, &video)
		err := w.doWork(&video)
		w.setActive(false, nil)
		if w.poolWorker.ctx.Err() != nil {
			w.logger.Debug("Ctx error is: ", w.poolWorker.ctx.Err())
			if w.poolWorker.ctx.Err() == context.Canceled {
				w.logger.Debug("Ctx was canceled")

				// End function so call return
				w.poolWorker.waitGroup.Done()
				return
			}
		}

		if err != nil {
			w.logger.Error("Video processing failed: ", err)
		}

		w.poolWorker.waitGroup.Done()
	}
}

func (w *Worker) doWork(video *Video) error {
	output, processVideoOutput := w.processVideo(video)
	if w.poolWorker.ctx.Err() != nil {
		// The context is cancelled, just return
		// it's handled in start
		return nil
	}

	if processVideoOutput.err != nil {
		w.handleProcessVideoError(video, output, &processVideoOutput)
		// Error was handled already
		return nil
	}

	if processVideoOutput.videoNotFound {
		w.logger.Error("Video to process wasn't found: ", video.Path)
		notFoundErr := errors.New("source video not found")
		w.failVideo(video, output, notFoundErr)
		return notFoundErr
	}

	if processVideoOutput.skip && *w.poolWorker.config.CopyFileToDestinationOnSkip {
		w.logger.WithField("srcPath", video.Path).
			WithField("destPath", video.OutputPath).
			Debug("Copying file to destination since it has been skipped")
		ok, err := IsSamePath(video.Path, video.OutputPath)
		if err != nil {
			w.logger.Error("Failed to match same path: ", err)
			return err
		}

		if !ok {
			err := CopyFile(video.Path, video.OutputPath)
			if err != nil {
				w.logger.Error("Failed to copy file to destination: ", err)
				return err
			}

			w.logger.Info("Video file copied sucessfully")
		} else {
			w.logger.Warn("Can't copy file with same path as output path")
		}
	}

	err := w.poolWorker.sqlite.MarkVideoAsDone(video)
	if err != nil {
		w.logger.Error("Failed to mark video as done: ", err)
		return err
	}

	if *w.poolWorker.config.DeleteInputFileWhenFinished && !processVideoOutput.outputFileAlreadyExist && !processVideoOutput.skip {
		ok, err := IsSamePath(video.Path, video.OutputPath)
		if err != nil {
			w.logger.Error("Error while looking up same path: ", err)
			return err
		}

		if !ok {
			err = os.Remove(video.Path)
			if err != nil {
				w.logger.WithFields(StructFields(video)).Error("Failed to delete video: ", err)
			}

			w.logger.WithField("file", video.Path).Info("Deleted input file")
		} else {
			w.logger.WithFields(StructFields(video)).Warn("Detected same path with delete input file option, not deleting anything!")
		}
	}

	w.logger.Info("Finished processing video")
	return nil
}

func (w *Worker) handleProcessVideoError(video *Video, output string, processVideoOutput *ProcessVideoOutput) {
	w.logger.WithFields(StructFields(video)).Error("Error processing video: ", processVideoOutput.err)
	if output != "" {
		w.logger.Debug("Process output: ", output)
	}

	retries, err := w.poolWorker.sqlite.GetVideoRetries(video)
	if err != nil {
		w.logger.WithFields(StructFields(video)).Error("Failed to get retries: ", err)
		return
	}

	if retries >= retryLimit {
		_ = w.failVideo(video, output, processVideoOutput.err)
		return
	}

	retries++
	err = w.poolWorker.sqlite.UpdateVideoRetries(video, retries)
	if err != nil {
		w.logger.WithFields(StructFields(video)).Error("Failed to update video retries: ", err)
		return
	}

	w.poolWorker.queue.Enqueue(*video)
	w.logger.WithFields(StructFields(video)).Info("Requeue video (back of the queue and retrying)")
}

func (w *Worker) failVideo(video *Video, output string, failError error) error {
	w.logger.WithFields(StructFields(video)).Info("Video failed, removing it from queue")
	err := w.poolWorker.sqlite.FailVideo(video, output, failError.Error())
	if err != nil {
		w.logger.WithFields(StructFields(video)).Error("Failed to fail the video: ", err)
		return err
	}

	return nil
}

func (w *Worker) processVideo(video *Video) (string, ProcessVideoOutput) {
	w.logger.WithFields(StructFields(video)).Info("Processing video")

	videoExist, err := FileExist(video.Path)
	if err != nil {
		return "", ProcessVideoOutput{err: err}
	}

	if !videoExist {
		return "", ProcessVideoOutput{videoNotFound: true}
	}

	outputExist, err := FileExist(video.OutputPath)
	if err != nil {
		return "", ProcessVideoOutput{err: err}
	}

	if outputExist && *w.poolWorker.config.DeleteOutputIfAlreadyExist {
		w.logger.Debug("Output already exist, deleting file")
		err = os.Remove(video.OutputPath)
		if err != nil {
			return "", ProcessVideoOutput{err: err}
		}
	} else if outputExist {
		w.logger.Debug("Output already exist, skipping")
		return "", ProcessVideoOutput{outputFileAlreadyExist: true}
	}

	processFolderWorker := path.Join(w.poolWorker.config.ProcessFolder, fmt.Sprintf("worker_%d", w.id))
	if _, err := os.Stat(processFolderWorker); err == nil {
		err := os.RemoveAll(processFolderWorker)
		if err != nil {
			return "", ProcessVideoOutput{err: err}
		}
	}

	w.setStep("probing")
	w.logger.Info("Getting video dimensions and framecount")
	videoInfo, err := GetVideoInfo(w.poolWorker.ctx, video.Path)
	if err != nil {
		return "", ProcessVideoOutput{err: err}
	}

	w.logger.Info("dimensions: ", videoInfo.Width, "x", videoInfo.Height)
	w.logger.Info("framecount: ", videoInfo.FrameCount)

	skipAbove := w.poolWorker.config.SkipAboveHeight
	if skipAbove > 0 && videoInfo.Height >= skipAbove {
		w.logger.Info("Video is already at or above the skip height, skipping")
		return "", ProcessVideoOutput{skip: true}
	}

	w.logger.Debug("Creating worker folder if doesn't exist")
	err = os.MkdirAll(processFolderWorker, os.ModePerm)
	if err != nil {
		return "", ProcessVideoOutput{err: err}
	}

	w.setStep("extracting audio")
	w.logger.Info("Extracting audio from the video")
	audioPath := path.Join(processFolderWorker, "audio.m4a")
	output, err := ExtractAudio(w.poolWorker.ctx, video.Path, audioPath)
	if err != nil {
		// Videos without an audio stream still get upscaled
		w.logger.WithField("processOutput", output).
			Warn("Audio extraction failed, continuing without audio")
		audioPath = ""
	}

	// make sure the folder exist
	baseOutputPath := path.Dir(video.OutputPath)
	w.logger.WithField("baseOutputPath", baseOutputPath).
		Debug("Creating output folder if it doesn't exist")
	if _, err := os.Stat(baseOutputPath); err != nil {
		err := os.MkdirAll(baseOutputPath, os.ModePerm)
		if err != nil {
			return "", ProcessVideoOutput{err: err}
		}
	}

	w.setStep("upscaling")
	w.logger.Info("Upscaling video")
	err = w.upscaleVideo(videoInfo, video.OutputPath, audioPath)
	if err != nil {
		return "", ProcessVideoOutput{err: err}
	}

	w.logger.Debug("Removing worker folder")
	err = os.RemoveAll(processFolderWorker)
	if err != nil {
		return "", ProcessVideoOutput{err: err}
	}

	return "", ProcessVideoOutput{}
}

// upscaleVideo pumps every decoded frame through the pipeline and into
// the encoder. The pipeline guarantees a dimensionally correct frame,
// so the raw stream fed to the encoder never desyncs.
func (w *Worker) upscaleVideo(videoInfo *VideoInfo, outputPath string, audioPath string) error {
	pipeline := w.poolWorker.pipeline
	vp := NewVideoProcessor(videoInfo, w.poolWorker.config.FfmpegOptions, pipeline.Options().Scale)

	if err := vp.StartReading(w.poolWorker.ctx); err != nil {
		return err
	}

	if err := vp.StartWriting(w.poolWorker.ctx, outputPath, audioPath); err != nil {
		return err
	}

	w.frameTotal.Store(videoInfo.FrameCount)
	w.framesDone.Store(0)

	for {
		frame, err := vp.ReadFrame()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			vp.Close()
			return err
		}

		upscaled, err := pipeline.Upscale(w.poolWorker.ctx, frame)
		if err != nil {
			// plane contract violation, not a per-frame failure
			vp.Close()
			return err
		}

		if err := vp.WriteFrame(upscaled); err != nil {
			vp.Close()
			return err
		}

		if done := w.framesDone.Inc(); done%30 == 0 {
			w.sendProgress()
		}
	}

	return vp.Close()
}

func (w *Worker) setActive(active bool, video *Video) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.info.Active = active
	w.info.Video = video
	w.info.Step = ""
	w.info.Progress = 0
	w.framesDone.Store(0)
	w.frameTotal.Store(0)
}

func (w *Worker) setStep(step string) {
	w.mu.Lock()
	w.info.Step = step
	w.mu.Unlock()

	w.sendProgress()
}

func (w *Worker) sendProgress() {
	info := w.Info()

	if w.poolWorker.hub != nil {
		w.poolWorker.hub.Broadcast(WsWorkerProgress{
			WsBaseMessage: WsBaseMessage{Type: "workerProgress"},
			WorkerID:      info.ID,
			Step:          info.Step,
			Progress:      info.Progress,
			Video:         info.Video,
		})
	}
}

func (w *Worker) Info() WorkerInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()

	info := w.info
	if total := w.frameTotal.Load(); total > 0 {
		info.Progress = float64(w.framesDone.Load()) / float64(total) * 100
	}

	return info
}
