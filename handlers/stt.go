package handlers

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"meetsync/config"
	"meetsync/utils"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
)

const (
	maxAudioBytes  = 5 * 1024 * 1024
	audioExtension = ".wav"
	sttSampleRate  = 16000
)

// wavHeader is the canonical 44-byte RIFF/WAVE header, used only to reject
// obviously broken uploads before spending an ffmpeg run on them.
type wavHeader struct {
	RiffTag       [4]byte
	FileSize      uint32
	WaveTag       [4]byte
	FmtTag        [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataTag       [4]byte
	DataSize      uint32
}

func parseWavHeader(data []byte) (*wavHeader, error) {
	if len(data) < 44 {
		return nil, errors.New("short WAV header")
	}
	var h wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if string(h.RiffTag[:]) != "RIFF" || string(h.WaveTag[:]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}
	return &h, nil
}

// normalizeAudio converts the upload to 16kHz mono LINEAR16, the encoding
// the recognizer is configured for.
func normalizeAudio(inputPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in system PATH: %v", err)
	}

	cmd := exec.Command("ffmpeg",
		"-y",
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", fmt.Sprint(sttSampleRate),
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %s", stderr.String())
	}
	return nil
}

// STTHandler transcribes a short WAV upload so voice clients can feed the
// turn endpoint. Transcription quality problems surface downstream as
// low-confidence extractions, not as errors here.
func STTHandler(c *gin.Context) {
	language := c.DefaultPostForm("language", "en-US")

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "audio file is required", err.Error())
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != audioExtension {
		utils.JSONError(c, http.StatusBadRequest, "invalid file type",
			fmt.Sprintf("expected %s, got %s", audioExtension, ext))
		return
	}

	tempInput, err := os.CreateTemp("", "utterance-*.wav")
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to create temp file", err.Error())
		return
	}
	defer os.Remove(tempInput.Name())
	defer tempInput.Close()

	if _, err := io.Copy(tempInput, io.LimitReader(file, maxAudioBytes)); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to save audio file", err.Error())
		return
	}

	raw, err := os.ReadFile(tempInput.Name())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read audio file", err.Error())
		return
	}
	if _, err := parseWavHeader(raw); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "malformed WAV file", err.Error())
		return
	}

	tempOutput, err := os.CreateTemp("", "normalized-*.wav")
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to create temp file", err.Error())
		return
	}
	defer os.Remove(tempOutput.Name())
	defer tempOutput.Close()

	if err := normalizeAudio(tempInput.Name(), tempOutput.Name()); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "audio conversion failed", err.Error())
		return
	}

	audioData, err := os.ReadFile(tempOutput.Name())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read converted audio", err.Error())
		return
	}

	ctx := c.Request.Context()
	client, err := speech.NewClient(ctx, option.WithCredentialsFile(config.AppConfig.GoogleServiceAccountFile))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to initialize speech client", err.Error())
		return
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   sttSampleRate,
			LanguageCode:      language,
			AudioChannelCount: 1,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "speech recognition failed", err.Error())
		return
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			transcript.WriteString(result.Alternatives[0].Transcript)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"transcript": transcript.String(),
		"language":   language,
	})
}
