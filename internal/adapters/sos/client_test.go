package sos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesekon2/sosflow/internal/ports"
)

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}

func TestGetObservationKVP(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c, err := NewClient(Config{
		URL:      srv.URL + "?",
		Version:  "1.0.0",
		Username: "alice",
		Password: "secret",
		Timeout:  5 * time.Second,
	}, nil)
	require.NoError(t, err)

	body, err := c.GetObservation(context.Background(), ports.GetObservationRequest{
		Offering:           "WIND",
		ObservedProperties: []string{"temperature", "pressure"},
		Procedure:          "P1",
		EventTime:          "2020-01-01T00:00:00/2020-01-02T00:00:00",
		ResponseFormat:     `text/xml;subtype="om/1.0.0"`,
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	assert.Equal(t, "SOS", got["service"])
	assert.Equal(t, "GetObservation", got["request"])
	assert.Equal(t, "1.0.0", got["version"])
	assert.Equal(t, "WIND", got["offering"])
	assert.Equal(t, "temperature,pressure", got["observedProperty"])
	assert.Equal(t, "P1", got["procedure"])
	assert.Equal(t, "2020-01-01T00:00:00/2020-01-02T00:00:00", got["eventTime"])
	assert.Equal(t, `text/xml;subtype="om/1.0.0"`, got["responseFormat"])
}

func TestGetObservationServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.GetObservation(context.Background(), ports.GetObservationRequest{Offering: "X"})
	assert.Error(t, err)
}

const capabilitiesBody = `<?xml version="1.0"?>
<sos:Capabilities xmlns:sos="http://www.opengis.net/sos/1.0" version="1.0.0">
  <sos:Contents>
    <sos:ObservationOfferingList>
      <sos:ObservationOffering gml:id="WIND" xmlns:gml="http://www.opengis.net/gml">
        <gml:name>WIND</gml:name>
        <sos:time>
          <gml:TimePeriod>
            <gml:beginPosition>2019-01-01T00:00:00</gml:beginPosition>
            <gml:endPosition>2020-06-01T00:00:00</gml:endPosition>
          </gml:TimePeriod>
        </sos:time>
        <sos:procedure xlink:href="urn:ogc:object:procedure:P1" xmlns:xlink="http://www.w3.org/1999/xlink"/>
        <sos:procedure xlink:href="urn:ogc:object:procedure:P2" xmlns:xlink="http://www.w3.org/1999/xlink"/>
        <sos:observedProperty xlink:href="urn:ogc:def:property:temperature" xmlns:xlink="http://www.w3.org/1999/xlink"/>
      </sos:ObservationOffering>
    </sos:ObservationOfferingList>
  </sos:Contents>
</sos:Capabilities>`

func TestCapabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetCapabilities", r.URL.Query().Get("request"))
		_, _ = w.Write([]byte(capabilitiesBody))
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)

	caps, err := c.Capabilities(context.Background())
	require.NoError(t, err)
	require.Len(t, caps.Offerings, 1)

	off, err := caps.Offering("WIND")
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:ogc:object:procedure:P1", "urn:ogc:object:procedure:P2"}, off.Procedures)
	assert.Equal(t, []string{"urn:ogc:def:property:temperature"}, off.ObservedProperties)
	assert.Equal(t, 2019, off.Begin.Year())
	assert.Equal(t, time.Month(6), off.End.Month())

	_, err = caps.Offering("MISSING")
	assert.Error(t, err)
}

const sensorMLBody = `<?xml version="1.0"?>
<sml:SensorML xmlns:sml="http://www.opengis.net/sensorML/1.0.1" version="1.0.1">
  <sml:member>
    <sml:System>
      <gml:name xmlns:gml="http://www.opengis.net/gml">station-1</gml:name>
      <gml:description xmlns:gml="http://www.opengis.net/gml">ridge anemometer</gml:description>
      <sml:keywords><sml:KeywordList>
        <sml:keyword>wind</sml:keyword>
        <sml:keyword>ridge</sml:keyword>
      </sml:KeywordList></sml:keywords>
      <sml:classification><sml:ClassifierList>
        <sml:classifier name="Sensor Type"><sml:Term><sml:value>anemometer</sml:value></sml:Term></sml:classifier>
        <sml:classifier name="System Type"><sml:Term><sml:value>station</sml:value></sml:Term></sml:classifier>
      </sml:ClassifierList></sml:classification>
      <sml:location><gml:Point srsName="EPSG:4326" xmlns:gml="http://www.opengis.net/gml">
        <gml:coordinates>15.5,49.8,633.0</gml:coordinates>
      </gml:Point></sml:location>
    </sml:System>
  </sml:member>
</sml:SensorML>`

func TestDescribeSensor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DescribeSensor", r.URL.Query().Get("request"))
		assert.Equal(t, "urn:ogc:object:procedure:P1", r.URL.Query().Get("procedure"))
		_, _ = w.Write([]byte(sensorMLBody))
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)

	desc, err := c.DescribeSensor(context.Background(), "urn:ogc:object:procedure:P1")
	require.NoError(t, err)
	assert.Equal(t, "station-1", desc.Name)
	assert.Equal(t, "ridge anemometer", desc.Description)
	assert.Equal(t, []string{"wind", "ridge"}, desc.Keywords)
	assert.Equal(t, "anemometer", desc.SensorType)
	assert.Equal(t, "station", desc.SystemType)
	assert.Equal(t, 4326, desc.SourceEPSG)
	assert.Equal(t, 15.5, desc.X)
	assert.Equal(t, 49.8, desc.Y)
	assert.Equal(t, 633.0, desc.Z)
}
