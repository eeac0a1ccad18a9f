//go:build !no_containers

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/bookscan/core/metrics"
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
`

func startMosquitto(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(mosquittoConf), 0o644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("start mosquitto: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestProgressPublisher_Mosquitto(t *testing.T) {
	broker := startMosquitto(t)

	received := make(chan coremetrics.GenerationEvent, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("progress-sub"))
	var tok paho.Token
	require.Eventually(t, func() bool {
		tok = sub.Connect()
		tok.Wait()
		return tok.Error() == nil
	}, 10*time.Second, 200*time.Millisecond)
	defer sub.Disconnect(100)

	tok = sub.Subscribe("bookscan/progress/#", 1, func(_ paho.Client, msg paho.Message) {
		var ev coremetrics.GenerationEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err == nil {
			select {
			case received <- ev:
			default:
			}
		}
	})
	tok.Wait()
	require.NoError(t, tok.Error())

	pub, err := NewProgressPublisher(Config{Enabled: true, Broker: broker, QoS: 1})
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.RecordGeneration(coremetrics.GenerationEvent{Instance: "d_tough_choices", Generation: 7, BestEver: 42}))

	select {
	case ev := <-received:
		require.Equal(t, 7, ev.Generation)
		require.Equal(t, "d_tough_choices", ev.Instance)
	case <-time.After(10 * time.Second):
		t.Fatal("progress message not received")
	}
}
