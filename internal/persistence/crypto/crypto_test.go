package crypto

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

const testKey = "H2h2xZe83AX90788QNqJXRiWX88xWI2b"

type CryptoSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *CryptoSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *CryptoSuite) TestRoundTrip() {
	for _, key := range []string{"0123456789abcdef", "0123456789abcdef01234567", testKey} {
		c, err := New(AES, key)
		s.Require().NoError(err)

		for _, plain := range []string{"", "hello", `{"name":"hero","gold":120}`, strings.Repeat("x", 4096), "存档"} {
			enc, err := c.Encrypt(s.ctx, plain)
			s.Require().NoError(err)
			_, err = base64.StdEncoding.DecodeString(enc)
			s.NoError(err)

			dec, err := c.Decrypt(s.ctx, enc)
			s.Require().NoError(err)
			s.Equal(plain, dec)
		}
	}
}

func (s *CryptoSuite) TestRandomNonce() {
	c, err := NewAESCryptographer(testKey)
	s.Require().NoError(err)

	a, err := c.Encrypt(s.ctx, "same text")
	s.Require().NoError(err)
	b, err := c.Encrypt(s.ctx, "same text")
	s.Require().NoError(err)
	s.NotEqual(a, b)
}

func (s *CryptoSuite) TestWrongKey() {
	c1, err := NewAESCryptographer(testKey)
	s.Require().NoError(err)
	c2, err := NewAESCryptographer(strings.Repeat("k", 32))
	s.Require().NoError(err)

	enc, err := c1.Encrypt(s.ctx, "secret")
	s.Require().NoError(err)
	_, err = c2.Decrypt(s.ctx, enc)
	s.ErrorIs(err, merr.ErrDecrypt)
	s.ErrorIs(err, ErrInvalidMAC)
}

func (s *CryptoSuite) TestTamper() {
	c, err := NewAESCryptographer(testKey)
	s.Require().NoError(err)

	enc, err := c.Encrypt(s.ctx, "secret payload")
	s.Require().NoError(err)
	packet, err := base64.StdEncoding.DecodeString(enc)
	s.Require().NoError(err)

	for _, idx := range []int{0, len(packet) / 2, len(packet) - 1} {
		tampered := append([]byte(nil), packet...)
		tampered[idx] ^= 0x01
		_, err := c.Decrypt(s.ctx, base64.StdEncoding.EncodeToString(tampered))
		s.ErrorIs(err, merr.ErrDecrypt)
	}
}

func (s *CryptoSuite) TestShortPacket() {
	c, err := NewAESCryptographer(testKey)
	s.Require().NoError(err)

	_, err = c.Decrypt(s.ctx, base64.StdEncoding.EncodeToString([]byte("short")))
	s.ErrorIs(err, ErrPacketTooShort)
	s.ErrorIs(err, merr.ErrDecrypt)

	_, err = c.Decrypt(s.ctx, "not base64!")
	s.ErrorIs(err, merr.ErrDecrypt)
}

func (s *CryptoSuite) TestInvalidKey() {
	for _, key := range []string{"", "short", strings.Repeat("k", 33)} {
		_, err := New(AES, key)
		s.ErrorIs(err, merr.ErrKeyInvalid)
	}
}

func (s *CryptoSuite) TestCanceled() {
	c, err := NewAESCryptographer(testKey)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = c.Encrypt(ctx, "x")
	s.ErrorIs(err, context.Canceled)
}

func (s *CryptoSuite) TestNop() {
	c, err := New(None, "ignored")
	s.Require().NoError(err)
	enc, err := c.Encrypt(s.ctx, "plain")
	s.NoError(err)
	s.Equal("plain", enc)
	dec, err := c.Decrypt(s.ctx, enc)
	s.NoError(err)
	s.Equal("plain", dec)
}

func (s *CryptoSuite) TestParseType() {
	t, err := ParseType(" AES ")
	s.NoError(err)
	s.Equal(AES, t)
	_, err = ParseType("rsa")
	s.ErrorIs(err, merr.ErrStrategyUnknown)
	s.Equal([]Type{None, AES}, Types())

	_, err = New(Type(9), testKey)
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func TestCrypto(t *testing.T) {
	suite.Run(t, new(CryptoSuite))
}
