package tracker

import "santatrack/internal/model"

// Rand is the randomness the tracker draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Int63() int64
	Float64() float64
}

var Reindeer = []model.Reindeer{
	{Name: "Dasher", Trait: "the speedster"},
	{Name: "Dancer", Trait: "the graceful"},
	{Name: "Prancer", Trait: "the proud"},
	{Name: "Vixen", Trait: "the clever"},
	{Name: "Comet", Trait: "the bright"},
	{Name: "Cupid", Trait: "the loving"},
	{Name: "Donner", Trait: "the strong"},
	{Name: "Blitzen", Trait: "the lightning"},
	{Name: "Rudolph", Trait: "the guide", Special: true},
}

type weightedGift struct {
	model.Gift
	Weight int
}

var gifts = []weightedGift{
	{model.Gift{Name: "Teddy Bears", Emoji: "🧸"}, 15},
	{model.Gift{Name: "Building Blocks", Emoji: "🧱"}, 12},
	{model.Gift{Name: "Dolls", Emoji: "🪆"}, 10},
	{model.Gift{Name: "Video Games", Emoji: "🎮"}, 12},
	{model.Gift{Name: "Books", Emoji: "📚"}, 15},
	{model.Gift{Name: "Bicycles", Emoji: "🚲"}, 5},
	{model.Gift{Name: "Art Supplies", Emoji: "🎨"}, 10},
	{model.Gift{Name: "Sports Equipment", Emoji: "⚽"}, 8},
	{model.Gift{Name: "Musical Instruments", Emoji: "🎸"}, 5},
	{model.Gift{Name: "Puzzles", Emoji: "🧩"}, 10},
	{model.Gift{Name: "Board Games", Emoji: "🎲"}, 8},
	{model.Gift{Name: "LEGO Sets", Emoji: "🏗️"}, 10},
	{model.Gift{Name: "Stuffed Animals", Emoji: "🐻"}, 12},
	{model.Gift{Name: "RC Cars", Emoji: "🚗"}, 6},
	{model.Gift{Name: "Science Kits", Emoji: "🔬"}, 7},
	{model.Gift{Name: "Candy", Emoji: "🍬"}, 15},
	{model.Gift{Name: "Chocolates", Emoji: "🍫"}, 12},
}

var WorkshopActivities = []string{
	"🔨 Building wooden trains",
	"🧸 Stuffing teddy bears",
	"🎮 Testing video games",
	"📝 Checking the nice list",
	"🍪 Eating cookies with elves",
	"🦌 Feeding the reindeer",
	"🛷 Polishing the sleigh",
	"🎁 Wrapping presents",
	"📖 Reading wish letters",
	"⭐ Making toys sparkle",
	"🧵 Sewing doll clothes",
	"🎨 Painting toy soldiers",
	"🔔 Tuning sleigh bells",
	"🗺️ Planning the route",
	"☕ Hot cocoa break!",
}

var santaMessages = []string{
	"Ho Ho Ho! 🎅",
	"Merry Christmas to all!",
	"The reindeer are flying wonderfully tonight!",
	"So many good children this year!",
	"Mrs. Claus packed extra cookies!",
	"The elves outdid themselves!",
	"What a beautiful night for flying!",
	"Almost to the next chimney!",
	"Rudolph's nose is extra bright tonight!",
	"Time for some milk and cookies!",
	"The sleigh is running perfectly!",
	"So many wishes to fulfill!",
	"Christmas magic is in the air!",
	"The Northern Lights are beautiful tonight!",
	"Every child deserves a gift!",
	"Spreading joy around the world!",
	"The stars are guiding us well!",
	"What wonderful letters this year!",
	"The workshop worked overtime!",
	"Love and joy to everyone!",
}

const (
	minSpeedMach     = 2000
	maxSpeedMach     = 5000
	reindeerSwapOdds = 0.3
	auroraLatitude   = 60.0
)

// Gifts lists the deliverable gift types.
func Gifts() []model.Gift {
	out := make([]model.Gift, len(gifts))
	for i, g := range gifts {
		out[i] = g.Gift
	}
	return out
}

// pickGift draws a gift type proportionally to its weight.
func pickGift(r Rand) model.Gift {
	total := 0
	for _, g := range gifts {
		total += g.Weight
	}
	n := r.Intn(total)
	for _, g := range gifts {
		if n < g.Weight {
			return g.Gift
		}
		n -= g.Weight
	}
	return gifts[0].Gift
}

func rollSpeed(r Rand) int { return minSpeedMach + r.Intn(maxSpeedMach-minSpeedMach+1) }

func rollCookies(r Rand) int { return 1 + r.Intn(5) }

func rollMilk(r Rand) int { return 1 + r.Intn(3) }

// maybeSwapReindeer changes the lead reindeer about a third of the time.
func maybeSwapReindeer(r Rand, current model.Reindeer) model.Reindeer {
	if r.Float64() < reindeerSwapOdds {
		return Reindeer[r.Intn(len(Reindeer))]
	}
	return current
}

func randomMessage(r Rand) string { return santaMessages[r.Intn(len(santaMessages))] }

func auroraVisible(d model.Destination) bool {
	return d.Lat > auroraLatitude || d.Lat < -auroraLatitude
}
