// Package mqtt adapts the Eclipse Paho MQTT client to transport.Transport.
package mqtt
