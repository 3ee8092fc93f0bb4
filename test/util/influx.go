package util

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	InfluxImage  = "influxdb:2.7"
	InfluxOrg    = "powerplan"
	InfluxBucket = "plans"
	InfluxToken  = "powerplan-test-token"
)

// Influx is a running InfluxDB 2 container initialised with InfluxOrg,
// InfluxBucket and InfluxToken.
type Influx struct {
	URL       string
	container tc.Container
	client    influxdb2.Client
}

// StartInflux launches InfluxDB in setup mode and waits for /health.
func StartInflux(ctx context.Context) (*Influx, error) {
	req := tc.ContainerRequest{
		Image:        InfluxImage,
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "admin-password",
			"DOCKER_INFLUXDB_INIT_ORG":         InfluxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      InfluxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": InfluxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return nil, err
	}
	in := &Influx{container: cont}
	host, err := cont.Host(ctx)
	if err != nil {
		in.Terminate()
		return nil, err
	}
	port, err := cont.MappedPort(ctx, "8086")
	if err != nil {
		in.Terminate()
		return nil, err
	}
	in.URL = fmt.Sprintf("http://%s:%s", host, port.Port())
	in.client = influxdb2.NewClient(in.URL, InfluxToken)
	return in, nil
}

// CountPoints returns the number of values of field in measurement tagged
// with planID over the last hour.
func (in *Influx) CountPoints(ctx context.Context, measurement, field, planID string) (int, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q and r.plan_id == %q)
  |> group()`, InfluxBucket, measurement, field, planID)
	res, err := in.client.QueryAPI(InfluxOrg).Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// Terminate closes the client and stops the container.
func (in *Influx) Terminate() {
	if in.client != nil {
		in.client.Close()
	}
	if in.container != nil {
		_ = in.container.Terminate(context.Background())
	}
}
