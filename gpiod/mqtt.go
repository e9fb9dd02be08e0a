package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stapelberg/gopigpio/pigpio"
)

const qosAtMostOnce = 0

type levelMessage struct {
	Level uint32    `json:"level"`
	Since time.Time `json:"since"`
}

func levelTopic(prefix string, gpio uint32) string {
	return fmt.Sprintf("%s/gpio/%d", prefix, gpio)
}

func subscribe(mqttClient mqtt.Client, topic string, hdl mqtt.MessageHandler) error {
	log.Printf("Subscribing to %s", topic)
	token := mqttClient.Subscribe(topic, qosAtMostOnce, hdl)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscription failed: %v", err)
	}
	return nil
}

func publishLevel(mqttClient mqtt.Client, prefix string, gpio uint32, level pigpio.Level, since time.Time) {
	b, err := json.Marshal(levelMessage{Level: uint32(level), Since: since})
	if err != nil {
		log.Println(err)
		return
	}
	mqttClient.Publish(levelTopic(prefix, gpio), qosAtMostOnce, true /* retained */, string(b))
}

// command executes a console command line received via MQTT and returns
// the reply to publish.
func (d *daemon) command(line string) string {
	out, err := d.console.Execute(line)
	if err != nil {
		return "error: " + err.Error()
	}
	return out
}

// newMQTT returns a client for broker which publishes every level change
// (retained) to <prefix>/gpio/<n> and executes console commands sent to
// <prefix>/cmd, replying on <prefix>/result.
func (d *daemon) newMQTT(broker, prefix string) mqtt.Client {
	opts := mqtt.NewClientOptions().AddBroker(broker)
	clientID := "https://github.com/stapelberg/gopigpio/gpiod"
	if hostname, err := os.Hostname(); err == nil {
		clientID += "@" + hostname
	}
	opts.SetClientID(clientID)
	opts.SetConnectRetry(true)
	opts.OnConnect = func(c mqtt.Client) {
		log.Printf("(re)connected to %s, publishing state", broker)
		for _, st := range d.state() {
			publishLevel(c, prefix, st.GPIO, pigpio.Level(st.Level), st.Since)
		}
		err := subscribe(c, prefix+"/cmd", func(c mqtt.Client, m mqtt.Message) {
			line := string(m.Payload())
			log.Printf("mqtt command: %q", line)
			c.Publish(prefix+"/result", qosAtMostOnce, false /* retained */, d.command(line))
		})
		if err != nil {
			log.Print(err)
		}
	}
	mqttClient := mqtt.NewClient(opts)
	d.publish = func(gpio uint32, level pigpio.Level, since time.Time) {
		publishLevel(mqttClient, prefix, gpio, level, since)
	}
	return mqttClient
}

// runMQTT connects mqttClient (retrying in the background) and disconnects
// once ctx is done.
func runMQTT(ctx context.Context, mqttClient mqtt.Client) error {
	token := mqttClient.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("MQTT connection failed: %v", err)
		}
	case <-ctx.Done():
	}
	<-ctx.Done()
	mqttClient.Disconnect(250 /* ms */)
	return ctx.Err()
}
