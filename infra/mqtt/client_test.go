package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	caFile = filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true, ClientCert: cert}.LoadTLSConfig()
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("nothing"), 0o600))
	_, err = Config{ClientCert: cert, ClientKey: key, CABundle: empty}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestNewClientOptions(t *testing.T) {
	opts, err := NewClientOptions(Config{
		Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p",
		LWTTopic: "powerplan/status", LWTPayload: "offline", LWTQoS: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "powerplan/status", opts.WillTopic)
	assert.Equal(t, "offline", string(opts.WillPayload))
	assert.False(t, opts.Order)

	_, err = NewClientOptions(Config{Broker: "tcp://localhost:1883", UseTLS: true})
	assert.Error(t, err)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	assert.False(t, cfg.Enabled())
	assert.NoError(t, cfg.Validate())

	cfg = Config{Broker: "tcp://b:1883", RequestTopic: "plans/+/request"}
	cfg.SetDefaults()
	assert.Equal(t, "powerplan", cfg.ClientID)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.NoError(t, cfg.Validate())

	cfg.EventsTopic = "events/#"
	assert.Error(t, cfg.Validate())

	cfg = Config{Broker: "tcp://b:1883", QoS: map[string]byte{QoSResponse: 3}}
	assert.Error(t, cfg.Validate())
}

func TestNewClient_ConnectError(t *testing.T) {
	useMock(t, &mockClient{connectErr: errors.New("refused")})
	_, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	assert.ErrorContains(t, err, "refused")
}

func TestClient_PublishRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{errors.New("net fail"), nil}}
	useMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)

	require.NoError(t, cli.Publish(context.Background(), "t", 1, []byte("x")))
	msgs := mc.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, byte(1), msgs[1].qos)
}

func TestClient_PublishGivesUp(t *testing.T) {
	mc := &mockClient{publishErrs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	useMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1})
	require.NoError(t, err)

	err = cli.Publish(context.Background(), "t", 0, []byte("x"))
	assert.ErrorContains(t, err, "c")
	assert.Len(t, mc.messages(), 3)
}

func TestClient_PublishHonoursContext(t *testing.T) {
	mc := &mockClient{publishErrs: []error{errors.New("a")}}
	useMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 3, BackoffMS: 10000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = cli.Publish(ctx, "t", 0, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, mc.messages(), 1)
}

func TestClient_PublishStopsWaitingOnDeadline(t *testing.T) {
	mc := &mockClient{stall: true}
	useMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cli.Publish(ctx, "t", 1, []byte("x")) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("publish ignored the context deadline")
	}
	assert.Len(t, mc.messages(), 1)
}

func TestClient_DisconnectStopsPublishing(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	cli.Disconnect()
	assert.ErrorIs(t, cli.Publish(context.Background(), "t", 0, nil), ErrNotConnected)
	assert.Empty(t, mc.messages())
}

func TestClient_ResubscribesOnReconnect(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	require.NoError(t, cli.Subscribe("plans/request", 1, func(_ paho.Client, _ paho.Message) {}))

	mc.opts.OnConnect(nil)
	assert.Equal(t, []string{"plans/request", "plans/request"}, mc.subscribed)
}
