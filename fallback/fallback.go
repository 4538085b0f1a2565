// Package fallback synthesizes a canned answer when no generation provider
// could produce one. It never performs I/O.
package fallback

import (
	"fmt"
	"strings"
	"unicode"
)

// Topic names the bucket a prompt was classified into.
type Topic string

const (
	TopicEnergy          Topic = "energy"
	TopicSoftware        Topic = "software"
	TopicMachineLearning Topic = "machine-learning"
	TopicWeb             Topic = "web"
	TopicMemory          Topic = "memory"
	TopicGeneric         Topic = "generic"
)

type bucket struct {
	topic    Topic
	keywords [][]string
	variants []string
}

// Buckets are checked in this order; the first match wins.
var buckets = []bucket{
	{
		topic:    TopicEnergy,
		keywords: phrases("electricity", "electric", "current", "voltage", "power"),
		variants: []string{
			"Electricity is the flow of electric charge through a conductor, usually electrons moving through a metal such as copper. Current is measured in amperes, voltage in volts and power in watts, and Ohm's Law ties them together as V = I × R.",
			"Current flows when a voltage is applied across a conductor. Homes use alternating current because it travels efficiently over long distances, while batteries and most electronics run on direct current.",
			"Power systems rely on electromagnetic induction. A generator turns mechanical energy into electrical energy and a motor does the reverse, which is the basis of the whole power grid.",
		},
	},
	{
		topic:    TopicSoftware,
		keywords: phrases("python", "programming", "code", "function", "variable"),
		variants: []string{
			"Python is known for readable syntax and a large library ecosystem. Its core building blocks are variables, functions, classes and modules, with NumPy, Pandas and Flask among the most used packages.",
			"Good code is easy to read. Use meaningful names, keep functions small, avoid repeating yourself and follow a style guide such as PEP 8 for Python.",
			"Python supports procedural, object-oriented and functional styles, so the same language works for small scripts as well as large applications and machine learning pipelines.",
		},
	},
	{
		topic:    TopicMachineLearning,
		keywords: phrases("ai", "artificial intelligence", "machine learning", "neural network"),
		variants: []string{
			"Artificial intelligence covers machine learning, deep learning, natural language processing and computer vision. Most modern systems are built on neural networks loosely inspired by the brain.",
			"Machine learning algorithms learn patterns from data. Supervised learning uses labeled examples, unsupervised learning finds hidden structure and reinforcement learning learns through interaction.",
			"Deep learning stacks many neural network layers to handle images, text and speech. TensorFlow, PyTorch and Keras are the common frameworks.",
		},
	},
	{
		topic:    TopicWeb,
		keywords: phrases("flask", "web", "api", "server", "http"),
		variants: []string{
			"Flask is a lightweight Python web framework for APIs and web applications. It provides routing, templating and request handling on top of WSGI.",
			"Web APIs use HTTP methods such as GET, POST, PUT and DELETE to let applications talk to each other. REST conventions describe how to organize endpoints around resources.",
			"Web applications split into a client and a server that communicate through APIs. Keeping the two apart makes the system easier to scale and maintain.",
		},
	},
	{
		topic:    TopicMemory,
		keywords: phrases("memory", "cache", "storage", "database"),
		variants: []string{
			"Semantic memory stores and retrieves information by meaning rather than by exact match, which makes caching and retrieval of related content possible.",
			"Caches keep frequently used data in fast storage. Common eviction policies are LRU and LFU, and a semantic cache matches entries by embedding similarity instead of exact keys.",
			"Vector databases represent text as high-dimensional embeddings. Related concepts end up close together, so nearest-neighbour search finds relevant information.",
		},
	},
}

var genericVariants = []string{
	"That's a thoughtful question about '%s'. The primary generation service is unavailable right now, so this is a backup answer. Which aspect would you like to explore?",
	"'%s' is an interesting topic. The generation service is having trouble at the moment, but I can still discuss it. Could you say more about what you're looking for?",
	"Good question regarding '%s'. This answer comes from the fallback responder while the providers are unreachable. Which details are you most curious about?",
}

func phrases(keywords ...string) [][]string {
	out := make([][]string, 0, len(keywords))
	for _, k := range keywords {
		out = append(out, words(k))
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSelector overrides the variant selector.
func WithSelector(s Selector) Option {
	return func(syn *Synthesizer) {
		if s != nil {
			syn.selector = s
		}
	}
}

// Synthesizer produces topic-aware canned responses.
type Synthesizer struct {
	selector Selector
}

// New creates a Synthesizer. Without options it picks variants at random.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{selector: newClockSelector()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify returns the first topic whose keywords appear in prompt.
func (s *Synthesizer) Classify(prompt string) Topic {
	return classify(words(prompt))
}

// Respond returns a canned answer for prompt.
func (s *Synthesizer) Respond(prompt string) string {
	text, _ := s.RespondTopic(prompt)
	return text
}

// RespondTopic is Respond that also reports the matched topic.
func (s *Synthesizer) RespondTopic(prompt string) (string, Topic) {
	topic := classify(words(prompt))
	for _, b := range buckets {
		if b.topic == topic {
			return b.variants[s.pick(len(b.variants))], topic
		}
	}
	return fmt.Sprintf(genericVariants[s.pick(len(genericVariants))], prompt), TopicGeneric
}

func (s *Synthesizer) pick(n int) int {
	i := s.selector.Pick(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

// Variants returns the canned responses for topic. Generic variants are
// rendered with prompt.
func Variants(topic Topic, prompt string) []string {
	if topic == TopicGeneric {
		out := make([]string, len(genericVariants))
		for i, v := range genericVariants {
			out[i] = fmt.Sprintf(v, prompt)
		}
		return out
	}
	for _, b := range buckets {
		if b.topic == topic {
			return append([]string(nil), b.variants...)
		}
	}
	return nil
}

func classify(tokens []string) Topic {
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if containsSequence(tokens, kw) {
				return b.topic
			}
		}
	}
	return TopicGeneric
}

func containsSequence(tokens, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(tokens) {
		return false
	}
	for i := 0; i+len(seq) <= len(tokens); i++ {
		match := true
		for j := range seq {
			if tokens[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
