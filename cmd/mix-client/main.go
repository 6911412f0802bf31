// Command mix-client is a small CLI for the mix-service HTTP API: it submits
// a mix request and saves the returned MP3, checks job status, or probes
// service health.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Flag names.
const (
	flagServer        = "server"
	flagText          = "text"
	flagBacking       = "backing"
	flagOutput        = "output"
	flagDuration      = "duration"
	flagTTSDuration   = "tts-duration"
	flagSpeed         = "speed"
	flagTTSVolume     = "tts-volume"
	flagBackingVolume = "backing-volume"
	flagJob           = "job"
	flagHealth        = "health"
)

// Flag descriptions.
const (
	flagServerDesc        = "Base URL of the mix-service"
	flagTextDesc          = "Affirmation text to synthesize and mix"
	flagBackingDesc       = "Backing track URL, or 'present' for silence"
	flagOutputDesc        = "Output file path (.mp3)"
	flagDurationDesc      = "Target track duration in seconds"
	flagTTSDurationDesc   = "Duration of one spoken reading in seconds"
	flagSpeedDesc         = "Speech speed multiplier [0.5, 4.0]"
	flagTTSVolumeDesc     = "Linear speech gain, typically (0, 1]"
	flagBackingVolumeDesc = "Linear backing track gain, typically (0, 1]"
	flagJobDesc           = "Job ID to look up instead of mixing"
	flagHealthDesc        = "Check mix-service health and exit"
)

// Defaults.
const (
	defaultServer        = "http://localhost:8085"
	defaultBacking       = "present"
	defaultOutputFile    = "combined_affirmation_audio.mp3"
	defaultDuration      = 900.0
	defaultTTSDuration   = 30.0
	defaultSpeed         = 1.0
	defaultTTSVolume     = 1.0
	defaultBackingVolume = 0.5
)

// Error and log messages.
const (
	errTextRequired     = "--text must be provided"
	errMixRequestFailed = "mix request failed: %v"
	errServiceReplied   = "service replied %d: %s"
	errWriteOutput      = "failed to write output file: %v"
	errHealthFailed     = "mix-service is not healthy: %v"
	logServiceHealthy   = "mix-service is healthy"
	logGenerated        = "Generated: %s\n"
	logJobStatus        = "Job %s: %s\n"
)

const (
	mixTimeout   = 15 * time.Minute
	probeTimeout = 10 * time.Second
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server        string
	text          string
	backing       string
	output        string
	duration      float64
	ttsDuration   float64
	speed         float64
	ttsVolume     float64
	backingVolume float64
	job           string
	health        bool
}

// mixRequest mirrors the service's JSON request body.
type mixRequest struct {
	Text                 string  `json:"text"`
	SelectedBackingTrack string  `json:"selectedBackingTrack"`
	TTSVolume            float64 `json:"ttsVolume"`
	BackingTrackVolume   float64 `json:"backingTrackVolume"`
	TrackDuration        float64 `json:"trackDuration"`
	TTSSpeed             float64 `json:"ttsSpeed"`
	TTSDuration          float64 `json:"ttsDuration"`
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	if flags.health {
		return handleHealthCheck(flags.server)
	}

	if flags.job != "" {
		return handleJobStatus(flags.server, flags.job)
	}

	return handleMix(flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.server, flagServer, defaultServer, flagServerDesc)
	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.backing, flagBacking, defaultBacking, flagBackingDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.Float64Var(&flags.duration, flagDuration, defaultDuration, flagDurationDesc)
	flag.Float64Var(&flags.ttsDuration, flagTTSDuration, defaultTTSDuration, flagTTSDurationDesc)
	flag.Float64Var(&flags.speed, flagSpeed, defaultSpeed, flagSpeedDesc)
	flag.Float64Var(&flags.ttsVolume, flagTTSVolume, defaultTTSVolume, flagTTSVolumeDesc)
	flag.Float64Var(&flags.backingVolume, flagBackingVolume, defaultBackingVolume, flagBackingVolumeDesc)
	flag.StringVar(&flags.job, flagJob, "", flagJobDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return flags
}

// handleMix submits the mix request and saves the returned audio.
func handleMix(flags appFlags) error {
	if strings.TrimSpace(flags.text) == "" {
		flag.Usage()

		return errors.New(errTextRequired)
	}

	body, err := json.Marshal(mixRequest{
		Text:                 flags.text,
		SelectedBackingTrack: flags.backing,
		TTSVolume:            flags.ttsVolume,
		BackingTrackVolume:   flags.backingVolume,
		TrackDuration:        flags.duration,
		TTSSpeed:             flags.speed,
		TTSDuration:          flags.ttsDuration,
	})
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mixTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		flags.server+"/v1/mix",
		strings.NewReader(string(body)),
	)
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(errServiceReplied, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	err = os.WriteFile(flags.output, data, 0o600)
	if err != nil {
		return fmt.Errorf(errWriteOutput, err)
	}

	fmt.Printf(logGenerated, flags.output)

	return nil
}

// handleJobStatus looks up one job and prints its status.
func handleJobStatus(server, jobID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		server+"/v1/jobs?jobId="+jobID,
		nil,
	)
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(errServiceReplied, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var status struct {
		JobID  string `json:"jobId"`
		Status string `json:"status"`
	}

	err = json.Unmarshal(data, &status)
	if err != nil {
		return fmt.Errorf(errMixRequestFailed, err)
	}

	fmt.Printf(logJobStatus, status.JobID, status.Status)

	return nil
}

// handleHealthCheck probes the service and prints the result.
func handleHealthCheck(server string) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"/health", nil)
	if err != nil {
		return fmt.Errorf(errHealthFailed, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf(errHealthFailed, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(errHealthFailed, fmt.Errorf("status %d", resp.StatusCode))
	}

	fmt.Println(logServiceHealthy)

	return nil
}
