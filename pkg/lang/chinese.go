package lang

import "strings"

// pinyinSyllables is the Hanyu Pinyin syllable inventory, ü written as v.
const pinyinSyllables = `
a ai an ang ao
ba bai ban bang bao bei ben beng bi bian biao bie bin bing bo bu
ca cai can cang cao ce cen ceng cha chai chan chang chao che chen cheng chi chong chou chu chua chuai chuan chuang chui chun chuo ci cong cou cu cuan cui cun cuo
da dai dan dang dao de dei den deng di dia dian diao die ding diu dong dou du duan dui dun duo
e ei en eng er
fa fan fang fei fen feng fo fou fu
ga gai gan gang gao ge gei gen geng gong gou gu gua guai guan guang gui gun guo
ha hai han hang hao he hei hen heng hong hou hu hua huai huan huang hui hun huo
ji jia jian jiang jiao jie jin jing jiong jiu ju juan jue jun
ka kai kan kang kao ke kei ken keng kong kou ku kua kuai kuan kuang kui kun kuo
la lai lan lang lao le lei leng li lia lian liang liao lie lin ling liu lo long lou lu luan lun luo lv lve
ma mai man mang mao me mei men meng mi mian miao mie min ming miu mo mou mu
na nai nan nang nao ne nei nen neng ni nian niang niao nie nin ning niu nong nou nu nuan nuo nv nve
o ou
pa pai pan pang pao pei pen peng pi pian piao pie pin ping po pou pu
qi qia qian qiang qiao qie qin qing qiong qiu qu quan que qun
ran rang rao re ren reng ri rong rou ru rua ruan rui run ruo
sa sai san sang sao se sen seng sha shai shan shang shao she shei shen sheng shi shou shu shua shuai shuan shuang shui shun shuo si song sou su suan sui sun suo
ta tai tan tang tao te teng ti tian tiao tie ting tong tou tu tuan tui tun tuo
wa wai wan wang wei wen weng wo wu
xi xia xian xiang xiao xie xin xing xiong xiu xu xuan xue xun
ya yan yang yao ye yi yin ying yo yong you yu yuan yue yun
za zai zan zang zao ze zei zen zeng zha zhai zhan zhang zhao zhe zhei zhen zheng zhi zhong zhou zhu zhua zhuai zhuan zhuang zhui zhun zhuo zi zong zou zu zuan zui zun zuo
`

const (
	defaultMaxSuggestions = 9
	chineseLanguageID     = "zh-CN"
)

// Chinese implements Features for Mandarin typed as Hanyu Pinyin.
type Chinese struct {
	syllables       map[string]struct{}
	prefixes        map[string]struct{}
	maxLen          int
	toneSignificant bool
	maxSuggestions  int
}

// Option configures a Chinese feature set.
type Option func(*Chinese)

// WithToneSignificance makes tone digits in the preedit filter candidates.
func WithToneSignificance(enabled bool) Option {
	return func(c *Chinese) {
		c.toneSignificant = enabled
	}
}

// WithMaxSuggestions overrides the default suggestion count. Values below 1 are ignored.
func WithMaxSuggestions(n int) Option {
	return func(c *Chinese) {
		if n > 0 {
			c.maxSuggestions = n
		}
	}
}

// NewChinese builds the pinyin feature set.
func NewChinese(opts ...Option) *Chinese {
	c := &Chinese{
		syllables:      make(map[string]struct{}, 420),
		prefixes:       make(map[string]struct{}, 900),
		maxSuggestions: defaultMaxSuggestions,
	}
	for _, s := range strings.Fields(pinyinSyllables) {
		c.syllables[s] = struct{}{}
		for i := 1; i <= len(s); i++ {
			c.prefixes[s[:i]] = struct{}{}
		}
		if len(s) > c.maxLen {
			c.maxLen = len(s)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chinese) LanguageID() string { return chineseLanguageID }

func (c *Chinese) IsAlphabet(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func (c *Chinese) IsSyllable(s string) bool {
	_, ok := c.syllables[s]
	return ok
}

func (c *Chinese) IsSyllablePrefix(s string) bool {
	_, ok := c.prefixes[s]
	return ok
}

func (c *Chinese) MaxSyllableLen() int { return c.maxLen }

func (c *Chinese) ToneSignificant() bool { return c.toneSignificant }

func (c *Chinese) MaxSuggestions() int { return c.maxSuggestions }

func (c *Chinese) AlwaysShowSuggestions() bool { return true }

// AutoCompleteOnSpace is true: space commits the first candidate in pinyin input.
func (c *Chinese) AutoCompleteOnSpace() bool { return true }

func (c *Chinese) WordSeparators() string { return "，。！？；：、" }

// SyllableCount returns the size of the inventory.
func (c *Chinese) SyllableCount() int { return len(c.syllables) }
