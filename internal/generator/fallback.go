package generator

import (
	"fmt"
	"sort"

	"github.com/mock-test/backend/internal/models"
)

const FallbackSource = "mock"

var subtopicsByTopic = map[string][]string{
	"Computer Fundamentals": {
		"CPU scheduling", "primary memory", "secondary storage", "file systems", "I/O devices", "operating systems",
		"virtual memory", "process synchronization", "BIOS/UEFI", "boot sequence", "binary/hex", "number systems",
		"computer architecture", "cache memory", "interrupts", "DMA", "throughput", "latency", "bandwidth", "pipelining",
	},
	"Data Structures": {
		"arrays", "linked lists", "stacks", "queues", "trees", "graphs", "hash tables", "heaps", "tries", "sorting",
	},
	"Computer Network": {
		"OSI layers", "TCP/UDP", "IP addressing", "routing", "switching", "DNS", "HTTP/HTTPS", "firewalls", "NAT", "subnetting",
	},
}

var genericSubtopics = []string{"concepts", "principles", "mechanisms", "components", "metrics", "best practices"}

var stemVerbs = []string{
	"best describes", "is true about", "is correct regarding", "most impacts", "is primarily used for", "correctly characterizes",
}

// fallbackRecords builds count deterministic records for the topic. offset is
// the index of the first record within the whole job, so batches of the same
// job never repeat a stem and the correct letter cycles A, B, C, D globally.
func fallbackRecords(topic string, offset, count int) []record {
	pool, ok := subtopicsByTopic[topic]
	if !ok {
		pool = genericSubtopics
	}

	out := make([]record, 0, count)
	for n := 0; n < count; n++ {
		idx := offset + n
		sub := pool[idx%len(pool)]
		verb := stemVerbs[idx%len(stemVerbs)]

		options := fallbackOptions(topic, sub, idx)
		correct := idx % 4

		out = append(out, record{
			"topic":          topic,
			"question_text":  fmt.Sprintf("(%d) Which of the following %s %s in %s?", idx+1, verb, sub, topic),
			"option_a":       options[0],
			"option_b":       options[1],
			"option_c":       options[2],
			"option_d":       options[3],
			"correct_option": models.OptionLetters[correct],
		})
	}
	return out
}

// fallbackOptions orders four statements reproducibly for idx and rotates
// them so the first statement lands on position idx%4.
func fallbackOptions(topic, sub string, idx int) [4]string {
	base := []string{
		fmt.Sprintf("%s increases performance in specific scenarios", sub),
		fmt.Sprintf("%s decreases latency but increases complexity", sub),
		fmt.Sprintf("%s is unrelated to %s in practice", sub, topic),
		fmt.Sprintf("%s is primarily managed by the operating system", sub),
	}
	sort.SliceStable(base, func(i, j int) bool {
		return (len(base[i])+idx)%7 < (len(base[j])+idx)%7
	})

	correct := idx % 4
	var rotated [4]string
	for i := range rotated {
		rotated[i] = base[(i+4-correct)%4]
	}
	return rotated
}
