// Package mqtt provides a broker-backed packet pipe for the remote
// syscall tunnel.
package mqtt

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Queue wraps an MQTT client with prefix-scoped topics.
type Queue struct {
	Client      paho.Client
	TopicPrefix string

	subsLock sync.RWMutex
	subs     map[string]Handler
}

// ClientOptionsFromURL creates ClientOptions from URL. The path becomes
// the topic prefix; user info and a client-id query are honored.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewQueue creates a Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, subs: make(map[string]Handler)}
	options.SetOnConnectHandler(func(paho.Client) {
		glog.V(2).Infof("mqtt connected, prefix=%q", q.TopicPrefix)
		q.resubscribe()
	})
	options.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("mqtt connection lost: %v", err)
	})
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates a Queue from a broker URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects to the broker, blocking until done.
func (q *Queue) Connect() error {
	token := q.Client.Connect()
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (q *Queue) Close() error {
	q.Client.Disconnect(100)
	return nil
}

func (q *Queue) topic(name string) string {
	if q.TopicPrefix == "" {
		return name
	}
	return q.TopicPrefix + "/" + name
}

// Sub registers a handler for a prefix-scoped topic.
func (q *Queue) Sub(topic string, handler Handler) error {
	full := q.topic(topic)
	q.subsLock.Lock()
	q.subs[full] = handler
	q.subsLock.Unlock()
	token := q.Client.Subscribe(full, 0, q.dispatch)
	token.Wait()
	return token.Error()
}

// Unsub removes the handler for a prefix-scoped topic.
func (q *Queue) Unsub(topic string) {
	full := q.topic(topic)
	q.subsLock.Lock()
	delete(q.subs, full)
	q.subsLock.Unlock()
	q.Client.Unsubscribe(full)
}

// Pub publishes a payload to a prefix-scoped topic, blocking until the
// broker acknowledges.
func (q *Queue) Pub(topic string, payload []byte) error {
	token := q.Client.Publish(q.topic(topic), 0, false, payload)
	token.Wait()
	return token.Error()
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	q.subsLock.RLock()
	handler := q.subs[msg.Topic()]
	q.subsLock.RUnlock()
	if handler != nil {
		handler(msg.Topic(), msg.Payload())
	}
}

func (q *Queue) resubscribe() {
	q.subsLock.RLock()
	defer q.subsLock.RUnlock()
	for topic := range q.subs {
		q.Client.Subscribe(topic, 0, q.dispatch)
	}
}
