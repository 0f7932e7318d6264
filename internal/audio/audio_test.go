package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, FormatWebM},
		{"ogg", []byte("OggS\x00\x02"), FormatOgg},
		{"wav", SilentWAV(10), FormatWAV},
		{"flac", []byte("fLaC\x00"), FormatFLAC},
		{"mp4", []byte("\x00\x00\x00\x20ftypisom"), FormatMP4},
		{"m4a", []byte("\x00\x00\x00\x20ftypM4A "), FormatM4A},
		{"mp3 id3", []byte("ID3\x03\x00"), FormatMP3},
		{"mp3 frame", []byte{0xFF, 0xFB, 0x90}, FormatMP3},
		{"empty", nil, FormatUnknown},
		{"garbage", []byte("hello world"), FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func TestFormatFromMIME(t *testing.T) {
	assert.Equal(t, FormatWebM, FormatFromMIME("audio/webm;codecs=opus"))
	assert.Equal(t, FormatWAV, FormatFromMIME("audio/x-wav"))
	assert.Equal(t, FormatMP3, FormatFromMIME(" Audio/MPEG "))
	assert.Equal(t, FormatUnknown, FormatFromMIME("text/plain"))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, FormatWAV, Resolve(SilentWAV(10), "audio/webm"), "sniffed bytes win")
	assert.Equal(t, FormatOgg, Resolve([]byte("????"), "audio/ogg"))
	assert.Equal(t, FormatWebM, Resolve([]byte("????"), ""))
}

func TestAlternate(t *testing.T) {
	assert.Equal(t, FormatOgg, FormatWebM.Alternate())
	assert.Equal(t, FormatWebM, FormatOgg.Alternate())
	assert.Equal(t, FormatM4A, FormatMP4.Alternate())
	assert.Equal(t, FormatUnknown, FormatWAV.Alternate())
}

func TestSilentWAV(t *testing.T) {
	wav := SilentWAV(100)

	assert.Len(t, wav, 44+3200)
	assert.True(t, IsSilentPCM(wav))
	assert.True(t, IsSilentPCM(SilentWAV(0)))

	noisy := append([]byte(nil), wav...)
	noisy[100] = 7
	assert.False(t, IsSilentPCM(noisy))
	assert.False(t, IsSilentPCM([]byte("OggS")))
}

func TestToneWAV(t *testing.T) {
	wav := ToneWAV(880, 200)

	assert.Len(t, wav, 44+6400)
	assert.Equal(t, FormatWAV, DetectFormat(wav))
	assert.False(t, IsSilentPCM(wav))
	assert.Equal(t, []byte{0, 0}, wav[44:46], "fade-in starts at zero")
}

func TestSilentURL(t *testing.T) {
	require.True(t, strings.HasPrefix(SilentURL, "data:audio/wav;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(SilentURL, "data:audio/wav;base64,"))
	require.NoError(t, err)
	assert.True(t, IsSilentPCM(raw))
}

func TestDataURLStore(t *testing.T) {
	url, err := DataURLStore{}.Put(context.Background(), []byte("ID3abc"), FormatUnknown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:audio/mpeg;base64,"))
}

type fakePutter struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	return &s3.PutObjectOutput{}, f.err
}

type fakePresigner struct {
	key string
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.key = *in.Key
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + *in.Key + "?sig=1"}, nil
}

func newFakeS3Store(putErr error) (*S3Store, *fakePutter, *fakePresigner) {
	putter := &fakePutter{err: putErr}
	presigner := &fakePresigner{}
	return &S3Store{
		bucket:  "voice",
		expiry:  time.Hour,
		client:  putter,
		presign: presigner,
		now:     func() time.Time { return time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC) },
	}, putter, presigner
}

func TestS3StorePut(t *testing.T) {
	store, putter, presigner := newFakeS3Store(nil)

	url, err := store.Put(context.Background(), []byte("ID3abc"), FormatMP3)
	require.NoError(t, err)

	require.NotNil(t, putter.in)
	assert.Equal(t, "voice", *putter.in.Bucket)
	assert.Equal(t, "audio/mpeg", *putter.in.ContentType)
	assert.True(t, strings.HasPrefix(*putter.in.Key, "audio/2025/03/04/"))
	assert.True(t, strings.HasSuffix(*putter.in.Key, ".mp3"))
	assert.Equal(t, *putter.in.Key, presigner.key)
	assert.Contains(t, url, "sig=1")
}

func TestS3StorePutError(t *testing.T) {
	store, _, presigner := newFakeS3Store(errors.New("denied"))

	_, err := store.Put(context.Background(), []byte("x"), FormatWAV)
	require.Error(t, err)
	assert.Empty(t, presigner.key, "no URL is presigned for a failed upload")
}
