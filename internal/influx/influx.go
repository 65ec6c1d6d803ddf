package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Bucket names used by roadsim.
const (
	BucketSimulation = "simulation"
	BucketHost       = "host_metrics"
)

// DefaultBucketNames are the default InfluxDB buckets used by roadsim.
var DefaultBucketNames = []string{
	BucketSimulation,
	BucketHost,
}

// Config is the influx.* section.
type Config struct {
	Enabled       bool
	Protocol      string
	Host          string
	Port          string
	Token         string
	Org           string
	RetentionDays int
	BatchSize     uint
	FlushInterval time.Duration
}

// URL is the server address built from Protocol, Host and Port.
func (c Config) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// Manager writes points to InfluxDB, or to a gzipped line-protocol backup
// file while the server is unreachable. WritePoint is safe for concurrent use.
type Manager struct {
	Client      influxdb2.Client
	BucketNames []string
	Logger      zerolog.Logger
	BackupPath  string

	mu           sync.Mutex
	cfg          Config
	writers      map[string]influxdb2_api.WriteAPI
	backupWriter *gzip.Writer
	backupFile   *os.File
	valid        bool
}

// NewManager creates a manager that backs up to backupPath.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connected reports whether points go to the server rather than the backup.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect pings the server and prepares org, buckets and writers. When the
// server does not answer, points go to the backup file instead and Connect
// still succeeds.
func (m *Manager) Connect(cfg Config) error {
	if !cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg

	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(cfg.BatchSize)
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	}
	m.Client = influxdb2.NewClientWithOptions(cfg.URL(), cfg.Token, opts)

	ctx := context.Background()
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.Logger.Warn().Err(err).Str("url", cfg.URL()).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.valid = true
	m.Logger.Info().Str("url", cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

// OpenBackup opens the backup file. It is a no-op when already open.
func (m *Manager) OpenBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openBackup()
}

func (m *Manager) openBackup() error {
	if m.backupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}
	m.valid = false

	if m.backupWriter == nil {
		return nil
	}
	err := errors.Join(m.backupWriter.Close(), m.backupFile.Close())
	m.backupWriter = nil
	m.backupFile = nil
	return err
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org); err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	rule := domain.RetentionRuleTypeExpire
	retention := domain.RetentionRule{Type: &rule}
	if m.cfg.RetentionDays > 0 {
		retention.EverySeconds = int64(m.cfg.RetentionDays) * 24 * 60 * 60
	}
	buckets := m.Client.BucketsAPI()
	for _, bucket := range m.BucketNames {
		if _, err := buckets.FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Int("retentionDays", m.cfg.RetentionDays).Msg("Bucket not found, creating")
		if _, err := buckets.CreateBucketWithName(ctx, org, bucket, retention); err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (m *Manager) createWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.writers[bucket] = w
		go func(bucket string, errs <-chan error) {
			for err := range errs {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.Logger.Debug().Strs("buckets", m.BucketNames).Msg("InfluxDB writers initialized")
}

// WritePoint queues point for bucket, or appends it to the backup file.
func (m *Manager) WritePoint(_ context.Context, bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.backupWriter == nil {
		return errors.New("influxDB not connected and no backup file open")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// ProcessMetricData parses a metric pushed by the host and returns a bucket
// name and point.
//
// Layout:
//
//	0 = bucket name
//	1 = measurement name
//	n with "tag::" prefix = tag::name::value
//	n with "field::" prefix = field::type::name::value (type is string, int or float)
func ProcessMetricData(data []string) (
	bucket string,
	point *influxdb2_write.Point,
	err error,
) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs a bucket and a measurement, got %d args", len(data))
	}

	bucket = data[0]
	measurementName := data[1]
	point = influxdb2_write.NewPointWithMeasurement(measurementName)

	for _, arg := range data[2:] {
		parts := strings.Split(arg, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			fieldType, fieldName, fieldValue := parts[1], parts[2], parts[3]
			switch fieldType {
			case "string":
				point.AddField(fieldName, fieldValue)
			case "int":
				intVal, err := strconv.Atoi(fieldValue)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to int: %w", fieldValue, err)
				}
				point.AddField(fieldName, intVal)
			case "float":
				floatVal, err := strconv.ParseFloat(fieldValue, 64)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to float: %w", fieldValue, err)
				}
				point.AddField(fieldName, floatVal)
			}
		}
	}

	return bucket, point.SetTime(time.Now()), nil
}
