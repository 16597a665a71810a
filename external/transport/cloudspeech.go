package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/foxseedlab/mojistream/internal/transcript"
	"github.com/foxseedlab/mojistream/internal/transport"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

// CloudSpeechDialer streams the same 16 kHz mono PCM to Cloud Speech v2.
// Final results come back re-encoded as speakers events so the rest of the
// pipeline does not care which backend is in use.
type CloudSpeechDialer struct {
	projectID       string
	credentialsJSON string
	language        string
	location        string
	model           string
}

func NewCloudSpeechDialer(cfg CloudSpeechConfig) *CloudSpeechDialer {
	return &CloudSpeechDialer{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		language:        cfg.Language,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (d *CloudSpeechDialer) Open(ctx context.Context, rawURL string) (transport.Channel, error) {
	sessionID := transport.SessionFromURL(rawURL)
	slog.Info("starting cloud speech streaming", "session_id", sessionID, "location", d.location, "language", d.language, "model", d.model)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(d.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: detect credentials: %v", transport.ErrUnreachable, err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if d.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", d.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transport.ErrUnreachable, err)
	}

	// The stream outlives the connect deadline; Close cancels it.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	recognizer := fmt.Sprintf("projects/%s/locations/%s/recognizers/_", d.projectID, d.location)
	openStream := func() (speechpb.Speech_StreamingRecognizeClient, error) {
		s, err := client.StreamingRecognize(streamCtx)
		if err != nil {
			return nil, err
		}
		if err := s.Send(d.configRequest(recognizer)); err != nil {
			_ = s.CloseSend()
			return nil, err
		}
		return s, nil
	}

	stream, err := openStream()
	if err != nil {
		cancel()
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", transport.ErrUnreachable, err)
	}
	slog.Info("cloud speech stream initialized", "session_id", sessionID)

	c := &speechChannel{
		stream:     stream,
		openStream: openStream,
		messages:   make(chan transport.Message, 16),
		errs:       make(chan error, 1),
		done:       make(chan struct{}),
		closeFn: func() error {
			cancel()
			return client.Close()
		},
	}
	c.startReceiver(stream)
	return c, nil
}

func (d *CloudSpeechDialer) configRequest(recognizer string) *speechpb.StreamingRecognizeRequest {
	target := audio.TargetFormat
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: recognizer,
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         d.model,
					LanguageCodes: []string{d.language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(target.SampleRate),
							AudioChannelCount: int32(target.Channels),
						},
					},
					Features: &speechpb.RecognitionFeatures{},
				},
			},
		},
	}
}

type speechChannel struct {
	mu         sync.Mutex
	closed     bool
	halfClosed bool
	stream     speechpb.Speech_StreamingRecognizeClient
	openStream func() (speechpb.Speech_StreamingRecognizeClient, error)
	closeFn    func() error

	messages chan transport.Message
	errs     chan error
	done     chan struct{}
}

func (c *speechChannel) Send(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.halfClosed {
		return transport.ErrChannelClosed
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm},
	}
	if err := c.stream.Send(req); err != nil {
		if !isReconnectableStreamError(err) {
			return fmt.Errorf("%w: %v", transport.ErrTransient, err)
		}
		slog.Warn("cloud speech send failed with reconnectable error; reconnecting", "error", err)
		if err := c.reconnectLocked(); err != nil {
			return fmt.Errorf("%w: reconnect stream: %v", transport.ErrTransient, err)
		}
		if err := c.stream.Send(req); err != nil {
			return fmt.Errorf("%w: %v", transport.ErrTransient, err)
		}
	}
	return nil
}

// SendText half-closes the request stream on the stop message so the
// service flushes its last final results. Other text is not supported.
func (c *speechChannel) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrChannelClosed
	}
	if text != transport.StopMessage {
		return fmt.Errorf("%w: cloud speech accepts no text frames", transport.ErrTransient)
	}
	c.halfClosed = true
	return c.stream.CloseSend()
}

func (c *speechChannel) Receive() (transport.Message, error) {
	select {
	case <-c.done:
		return transport.Message{}, transport.ErrChannelClosed
	default:
	}
	select {
	case m := <-c.messages:
		return m, nil
	case err := <-c.errs:
		return transport.Message{}, err
	case <-c.done:
		return transport.Message{}, transport.ErrChannelClosed
	}
}

func (c *speechChannel) Close(string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	if !c.halfClosed {
		_ = c.stream.CloseSend()
	}
	return c.closeFn()
}

func (c *speechChannel) reconnectLocked() error {
	_ = c.stream.CloseSend()
	next, err := c.openStream()
	if err != nil {
		slog.Error("failed to reconnect cloud speech stream", "error", err)
		return err
	}
	c.stream = next
	c.startReceiver(next)
	slog.Info("cloud speech stream reconnected")
	return nil
}

func (c *speechChannel) startReceiver(stream speechpb.Speech_StreamingRecognizeClient) {
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
					slog.Info("cloud speech receive loop stopped", "reason", err.Error())
					return
				}
				if isReconnectableStreamError(err) {
					slog.Warn("cloud speech receive loop ended with reconnectable abort", "error", err)
					return
				}
				select {
				case c.errs <- err:
				default:
				}
				return
			}
			raw, ok := resultMessage(resp.GetResults())
			if !ok {
				continue
			}
			select {
			case c.messages <- transport.Message{Type: transport.MessageText, Data: raw}:
			case <-c.done:
				return
			}
		}
	}()
}

// resultMessage turns the final results of one response into a speakers
// event. Interim results are skipped.
func resultMessage(results []*speechpb.StreamingRecognitionResult) ([]byte, bool) {
	var lines []transcript.Line
	for _, result := range results {
		if !result.GetIsFinal() || len(result.GetAlternatives()) == 0 {
			continue
		}
		alt := result.GetAlternatives()[0]
		text := strings.TrimSpace(alt.GetTranscript())
		if text == "" {
			continue
		}
		lines = append(lines, transcript.Line{Speaker: speakerLabel(alt), Text: text})
	}
	if len(lines) == 0 {
		return nil, false
	}
	raw, err := transcript.Encode(lines)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func speakerLabel(alt *speechpb.SpeechRecognitionAlternative) string {
	for _, w := range alt.GetWords() {
		if label := w.GetSpeakerLabel(); label != "" {
			return label
		}
	}
	return transcript.UnknownSpeaker
}

func isReconnectableStreamError(err error) bool {
	if errors.Is(err, io.EOF) || strings.Contains(strings.ToLower(err.Error()), "eof") {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
