package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/assuan-go/internal/errors"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "ttyname", want: "ttyname"},
		{name: "path", in: "/dev/pts/4", want: "/dev/pts/4"},
		{name: "space", in: "a b", want: "a%20b"},
		{name: "percent", in: "100%", want: "100%25"},
		{name: "crlf", in: "x\r\ny", want: "x%0D%0Ay"},
		{name: "plus untouched", in: "a+b", want: "a+b"},
		{name: "high bytes untouched", in: "\xffé", want: "\xffé"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Escape([]byte(tt.in))))
		})
	}
}

func TestEscape_ReturnsCopy(t *testing.T) {
	for _, in := range []string{"plain", "needs escaping"} {
		src := []byte(in)
		out := Escape(src)
		out[0] = 'X'

		assert.Equal(t, in, string(src), "input %q", in)
	}
}

func TestEscapeUnescape_RoundTrip(t *testing.T) {
	inputs := []string{
		"a b c",
		"%%%",
		"\r\n\r\n",
		"line one\nline two % done",
		" leading and trailing ",
		"%20 already looks escaped",
	}

	for _, in := range inputs {
		got, err := Unescape(Escape([]byte(in)))
		require.NoError(t, err)
		require.Equal(t, in, string(got))
	}
}

func TestUnescape_AcceptsLowercase(t *testing.T) {
	got, err := Unescape([]byte("a%0ab%2fc"))
	require.NoError(t, err)
	require.Equal(t, "a\nb/c", string(got))
}

func TestUnescape_Malformed(t *testing.T) {
	for _, in := range []string{"%", "%4", "abc%zz", "%g0"} {
		_, err := Unescape([]byte(in))
		require.ErrorIs(t, err, errors.ErrMalformedEscape, "input %q", in)
	}
}

func TestEncodeCommand(t *testing.T) {
	line, err := EncodeCommand("OPTION", []byte("ttyname"), []byte("/dev/pts/4"))
	require.NoError(t, err)
	require.Equal(t, "OPTION ttyname /dev/pts/4\n", string(line))

	line, err = EncodeCommand("GET_PASSPHRASE", []byte("id"), []byte("X"), []byte("Pass phrase:"), []byte("the vault"))
	require.NoError(t, err)
	require.Equal(t, "GET_PASSPHRASE id X Pass%20phrase: the%20vault\n", string(line))

	line, err = EncodeCommand("BYE")
	require.NoError(t, err)
	require.Equal(t, "BYE\n", string(line))

	line, err = EncodeCommand("NOP", []byte{})
	require.NoError(t, err)
	require.Equal(t, "NOP \n", string(line))
}

func TestEncodeCommand_InvalidName(t *testing.T) {
	for _, name := range []string{"", "GET PASSPHRASE", "BYE\n", "A\rB", "50%"} {
		_, err := EncodeCommand(name)
		require.ErrorIs(t, err, errors.ErrInvalidCommandName, "name %q", name)
	}
}

func TestEncodeCommand_TooLong(t *testing.T) {
	_, err := EncodeCommand("SETDESC", []byte(strings.Repeat("x", MaxLineLength)))
	require.ErrorIs(t, err, errors.ErrLineTooLong)

	// Escaping expands the argument past the limit.
	_, err = EncodeCommand("SETDESC", []byte(strings.Repeat(" ", 400)))
	require.ErrorIs(t, err, errors.ErrLineTooLong)

	_, err = EncodeCommand("SETDESC", []byte(strings.Repeat("x", MaxLineLength-len("SETDESC "))))
	require.NoError(t, err)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in      string
		kind    LineKind
		payload string
	}{
		{in: "OK", kind: LineOK, payload: ""},
		{in: "OK Pleased to meet you", kind: LineOK, payload: " Pleased to meet you"},
		{in: "ERR 67108922 Invalid passphrase", kind: LineErr, payload: "67108922 Invalid passphrase"},
		{in: "D 68656c6c6f", kind: LineData, payload: "68656c6c6f"},
		{in: "D ", kind: LineData, payload: ""},
		{in: "S PROGRESS 1 2", kind: LineStatus, payload: "PROGRESS 1 2"},
		{in: "# just a comment", kind: LineComment, payload: " just a comment"},
		{in: "#", kind: LineComment, payload: ""},
		{in: "INQUIRE CIPHERTEXT", kind: LineInquire, payload: "CIPHERTEXT"},
		{in: "INQUIRE", kind: LineInquire, payload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLine([]byte(tt.in))
			require.NoError(t, err)
			require.Equal(t, tt.kind, got.Kind)
			require.Equal(t, tt.payload, string(got.Payload))
		})
	}
}

func TestParseLine_Unsupported(t *testing.T) {
	for _, in := range []string{"", "ERR", "D", "S", "DATA x", "ok", "HELLO"} {
		_, err := ParseLine([]byte(in))
		require.ErrorIs(t, err, errors.ErrUnsupportedResponse, "line %q", in)
	}
}

func TestLineKind(t *testing.T) {
	require.True(t, LineOK.Terminal())
	require.True(t, LineErr.Terminal())
	require.False(t, LineData.Terminal())
	require.False(t, LineInquire.Terminal())
	require.Equal(t, "INQUIRE", LineInquire.String())
}

func TestSplitStatus(t *testing.T) {
	kw, args := SplitStatus([]byte("PROGRESS primegen ? 1 0"))
	require.Equal(t, "PROGRESS", kw)
	require.Equal(t, "primegen ? 1 0", string(args))

	kw, args = SplitStatus([]byte("NEWSIG"))
	require.Equal(t, "NEWSIG", kw)
	require.Empty(t, args)
}
