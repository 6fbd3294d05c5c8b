package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit shuffles row positions into disjoint train and test sets
// that keep each label's share within one row of exact. The result depends
// only on labels, testSize and seed.
func StratifiedSplit(labels []int, testSize float64, seed int64) (train, test []int, err error) {
	n := len(labels)
	if n == 0 {
		return nil, nil, ErrEmptyDataset
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v must be between 0 and 1", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest

	classes, byClass := groupByLabel(labels)
	if nTrain < len(classes) || nTest < len(classes) {
		return nil, nil, fmt.Errorf("train size %d and test size %d must both be at least the number of classes %d", nTrain, nTest, len(classes))
	}

	counts := make([]int, len(classes))
	for i, class := range classes {
		counts[i] = len(byClass[class])
		if counts[i] < 2 {
			return nil, nil, fmt.Errorf("label %d has %d member, need at least 2", class, counts[i])
		}
	}

	trainCounts := approximateMode(counts, nTrain)
	remaining := make([]int, len(counts))
	for i := range counts {
		remaining[i] = counts[i] - trainCounts[i]
	}
	testCounts := approximateMode(remaining, nTest)

	rnd := rand.New(rand.NewSource(seed))
	train = make([]int, 0, nTrain)
	test = make([]int, 0, nTest)
	for i, class := range classes {
		members := byClass[class]
		perm := rnd.Perm(len(members))
		for k, p := range perm[:trainCounts[i]+testCounts[i]] {
			if k < trainCounts[i] {
				train = append(train, members[p])
			} else {
				test = append(test, members[p])
			}
		}
	}
	rnd.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rnd.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

func groupByLabel(labels []int) ([]int, map[int][]int) {
	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes, byClass
}

// approximateMode allocates draws across classes proportionally to counts.
// Floors are taken first; leftover draws go to the largest fractional parts,
// earlier classes winning ties.
func approximateMode(counts []int, draws int) []int {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]int, len(counts))
	if total == 0 {
		return out
	}

	remainders := make([]float64, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(c) * float64(draws) / float64(total)
		out[i] = int(math.Floor(exact))
		remainders[i] = exact - float64(out[i])
		assigned += out[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for _, i := range order {
		if assigned >= draws {
			break
		}
		if out[i] < counts[i] {
			out[i]++
			assigned++
		}
	}
	return out
}
