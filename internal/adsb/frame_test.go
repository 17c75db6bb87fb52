package adsb

import (
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHex_ExtendedSquitters(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		address string
		crcHex  string
		kind    MessageKind
	}{
		{"Identification", "8D4840D6202CC371C32CE0576098", "4840d6", "576098", KindIdentification},
		{"Position", "8D40621D58C382D690C8AC2863A7", "40621d", "2863a7", KindAirbornePosition},
		{"Velocity", "8D485020994409940838175B284F", "485020", "5b284f", KindAirborneVelocity},
		{"Unknown type code", "8C4841753A9A153237AEF0F275BE", "484175", "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeHex(tt.input)
			require.NoError(t, err)

			assert.Equal(t, LongFrameBytes, frame.Bytes)
			assert.Equal(t, ModeExtended, frame.Mode)
			assert.Equal(t, uint8(DFExtendedSquitter), frame.DF)
			assert.Equal(t, tt.address, frame.Address.String())

			if tt.crcHex != "" {
				assert.True(t, frame.CRCMatch)
				assert.Equal(t, tt.crcHex, frame.CRCHex)
			}

			es, ok := frame.Payload.(*ExtendedSquitter)
			require.True(t, ok, "got %T", frame.Payload)
			assert.Equal(t, "extended squitter", es.DFName)
			require.NotNil(t, frame.Message())
			assert.Equal(t, tt.kind, frame.Message().Kind())
		})
	}
}

func TestDecodeHex_Identification(t *testing.T) {
	frame, err := DecodeHex("8D4840D6202CC371C32CE0576098")
	require.NoError(t, err)

	assert.Equal(t, uint8(5), frame.CA)
	assert.Equal(t, uint32(0x576098), frame.CRC)

	id := frame.Message().(*Identification)
	assert.Equal(t, "KLM1023 ", id.Callsign)
	assert.Equal(t, uint8(4), id.TC)
}

func TestDecodeHex_Passthrough(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		bytes   int
		df      uint8
		ca      uint8
		address string
		dfName  string
		data    string
	}{
		{"All call reply", "5D484FDEA248F5", 7, 11, 5, "484fde", "all call reply", "a248f5"},
		{"Surveillance altitude", "2A00516D492B80", 7, 5, 2, "00516d", "identity reply", "492b80"},
		{"Altitude reply", "2000171806A983", 7, 4, 0, "001718", "altitude reply", "06a983"},
		{"Comm-B identity", "A8001EBCAEE57730A80106DE1344", 14, 21, 0, "001ebc", "comm-b identity reply", "aee57730a80106"},
		{"Comm-B altitude", "A0000638FA81C10000000081A92F", 14, 20, 0, "000638", "comm-b altitude reply", "fa81c100000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeHex(tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.bytes, frame.Bytes)
			assert.Equal(t, tt.df, frame.DF)
			assert.Equal(t, tt.ca, frame.CA)
			assert.Equal(t, tt.address, frame.Address.String())
			assert.Nil(t, frame.Message())

			p, ok := frame.Payload.(*Passthrough)
			require.True(t, ok, "got %T", frame.Payload)
			assert.Equal(t, tt.dfName, p.DFName)
			assert.Equal(t, tt.data, p.Data.String())
		})
	}
}

func TestDecodeFrame_ExtendedNonSquitter(t *testing.T) {
	me := mustHex(t, "202CC371C32CE0")
	buf := extendedFrame(DFNonTransponder, 2, 0xABCDEF, me)
	frame, err := DecodeFrame(buf)
	require.NoError(t, err)

	// The computed CRC equals the appended parity.
	parity := uint64(buf[11])<<16 | uint64(buf[12])<<8 | uint64(buf[13])
	assert.True(t, frame.CRCMatch)
	assert.Equal(t, strconv.FormatUint(parity, 16), frame.CRCHex)
	p, ok := frame.Payload.(*Passthrough)
	require.True(t, ok, "got %T", frame.Payload)
	assert.Equal(t, HexBytes(me), p.Data)
}

func TestDecodeFrame_BadCRCStillDecodes(t *testing.T) {
	buf := mustHex(t, "8D4840D6202CC371C32CE0576098")
	buf[13] ^= 0x01

	frame, err := DecodeFrame(buf)
	require.NoError(t, err)
	assert.False(t, frame.CRCMatch)
	assert.Equal(t, "KLM1023 ", frame.Message().(*Identification).Callsign)
}

func TestDecodeFrame_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"Six bytes", "5D484FDEA248"},
		{"Eight bytes", "5D484FDEA248F500"},
		{"Thirteen bytes", "8D4840D6202CC371C32CE05760"},
		{"Odd length", "5D484FDEA248F"},
		{"Not hex", "5D484FDEA248ZZ"},
		{"Separators", "5D 48 4F DE A2 48 F5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeHex(tt.input)
			assert.Nil(t, frame)
			assert.True(t, errors.Is(err, ErrInputFormat), "got %v", err)
		})
	}
}

func TestDecodeFrame_GrayAltitudeFails(t *testing.T) {
	me := packBits(t,
		bitsOf{5, 11}, bitsOf{2, 0}, bitsOf{1, 0},
		bitsOf{12, 0xA3},
		bitsOf{1, 0}, bitsOf{1, 0}, bitsOf{17, 5}, bitsOf{17, 5},
	)

	frame, err := DecodeFrame(extendedFrame(DFExtendedSquitter, 5, 0x4840D6, me))
	assert.Nil(t, frame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedEncoding), "got %v", err)
	assert.True(t, strings.HasPrefix(err.Error(), "df 17: type code 11"), err.Error())
}

func TestFrame_JSON(t *testing.T) {
	frame, err := DecodeHex("8D4840D6202CC371C32CE0576098")
	require.NoError(t, err)

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded struct {
		Bytes    int    `json:"frame_bytes"`
		Mode     string `json:"frame_mode"`
		DF       int    `json:"df"`
		Address  string `json:"address"`
		CRCMatch bool   `json:"crc_match"`
		CRCHex   string `json:"crc_hex"`
		Payload  struct {
			Kind    string `json:"kind"`
			DFName  string `json:"df_name"`
			Message struct {
				Kind         string `json:"kind"`
				Name         string `json:"me_type_name"`
				Ident        string `json:"ident"`
				CategoryName string `json:"aircraft_category_name"`
			} `json:"message"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, 14, decoded.Bytes)
	assert.Equal(t, "extended", decoded.Mode)
	assert.Equal(t, 17, decoded.DF)
	assert.Equal(t, "4840d6", decoded.Address)
	assert.True(t, decoded.CRCMatch)
	assert.Equal(t, "576098", decoded.CRCHex)
	assert.Equal(t, "extended_squitter", decoded.Payload.Kind)
	assert.Equal(t, "extended squitter", decoded.Payload.DFName)
	assert.Equal(t, "identification", decoded.Payload.Message.Kind)
	assert.Equal(t, "aircraft identification", decoded.Payload.Message.Name)
	assert.Equal(t, "KLM1023 ", decoded.Payload.Message.Ident)
	assert.Equal(t, "no category info", decoded.Payload.Message.CategoryName)
	assert.NotContains(t, string(data), `"CRC"`)
}

func TestFrame_PassthroughJSON(t *testing.T) {
	frame, err := DecodeHex("5D484FDEA248F5")
	require.NoError(t, err)

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	payload := decoded["payload"].(map[string]interface{})
	assert.Equal(t, "passthrough", payload["kind"])
	assert.Equal(t, "a248f5", payload["raw_data"])
	assert.Equal(t, "short", decoded["frame_mode"])
}

func TestDecodeFrame_LayoutReassembles(t *testing.T) {
	inputs := map[string]layout[frameFields]{
		"5D484FDEA248F5":               shortFrameLayout,
		"8D40621D58C382D690C8AC2863A7": extendedFrameLayout,
	}

	for input, fl := range inputs {
		buf := mustHex(t, input)
		ranges := fl.ranges()
		slices, err := Slice(buf, ranges...)
		require.NoError(t, err)

		assert.Equal(t, 0, new(big.Int).SetBytes(buf).Cmp(rejoin(ranges, slices)), input)
	}
}

func TestDecodeFrame_Concurrent(t *testing.T) {
	inputs := []string{
		"8D4840D6202CC371C32CE0576098",
		"8D40621D58C382D690C8AC2863A7",
		"8D485020994409940838175B284F",
		"5D484FDEA248F5",
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := inputs[i%len(inputs)]
			frame, err := DecodeHex(input)
			if assert.NoError(t, err) {
				assert.Equal(t, len(input)/2, frame.Bytes)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkDecodeHex(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := DecodeHex("8D485020994409940838175B284F"); err != nil {
			b.Fatal(err)
		}
	}
}
