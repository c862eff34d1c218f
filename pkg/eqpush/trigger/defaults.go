package trigger

// Defaults returns the stock trigger list. A new slice is returned on every
// call so callers may modify it.
func Defaults() []Definition {
	return []Definition{
		{"Melee Damage On You", `^(?P<source>[\w\s]+?) (?P<attack>\w+?)e?s? YOU for (?P<damage>\d+) points of damage\.$`},
		{"Melee Miss On You", `^(?P<source>[\w\s]+?) tries to (?P<attack>\w+?) YOU, but (?P<miss>\w+?)e?s?!$`},
		{"Slain", `^(?P<target>[\w\s]+?) (?:have|has) been slain by (?P<source>.*)\.`},
		{"You died", `^You died\.`},
		{"Knocked unconscious", `You have been knocked unconscious!`},
		{"Charm Break!", `Your charm spell has worn off\.`},
		{"/tell", `^(?P<source>[\w]+) -> (?P<target>[\w]+): (?P<message>.*)$`},
		{"/say", `^(?P<source>[\w]+) says?, '(?P<message>.*)'$`},
		{"/ooc", `^(?P<source>[\w]+) says? out of character, '(?P<message>.*)'$`},
		{"/auction", `^(?P<source>[\w]+) auctions?, '(?P<message>.*)'$`},
		{"/gsay", `^(?P<source>[\w]+) tells? (?:your party|the group), '(?P<message>.*)'$`},
		{"/shout", `^(?P<source>[\w]+) shouts?, '(?P<message>.*)'$`},
		{"/guildsay", `^(?P<source>[\w]+) (?:say to your|tells the) guild, '(?P<message>.*)'$`},
	}
}
