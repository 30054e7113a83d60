package cpu

// Prefix bytes.
const (
	PrefixCB = 0xCB
	PrefixDD = 0xDD
	PrefixED = 0xED
	PrefixFD = 0xFD

	PrefixIX = PrefixDD
	PrefixIY = PrefixFD
)

// Opcodes for the unprefixed page. Values with a register, pair or
// condition field hold that field as zero.
const (
	// Loads
	OPLDrr      = 0x40 // LD r,r'    01 rrr rrr
	OPLDrn      = 0x06 // LD r,n     00 rrr 110
	OPLDddnn    = 0x01 // LD dd,nn   00 dd0 001
	OPLDHLmem   = 0x2A // LD HL,(nn)
	OPLDmemHL   = 0x22 // LD (nn),HL
	OPLDAmem    = 0x3A // LD A,(nn)
	OPLDmemA    = 0x32 // LD (nn),A
	OPLDABC     = 0x0A // LD A,(BC)
	OPLDADE     = 0x1A // LD A,(DE)
	OPLDBCA     = 0x02 // LD (BC),A
	OPLDDEA     = 0x12 // LD (DE),A
	OPLDSPHL    = 0xF9 // LD SP,HL
	OPLDmemHLn  = 0x36 // LD (HL),n
	OPEXDEHL    = 0xEB // EX DE,HL
	OPEXAF      = 0x08 // EX AF,AF'
	OPEXSPHL    = 0xE3 // EX (SP),HL
	OPEXX       = 0xD9 // EXX
	OPPUSH      = 0xC5 // PUSH qq    11 qq0 101
	OPPOP       = 0xC1 // POP qq     11 qq0 001
	OPINCr      = 0x04 // INC r      00 rrr 100
	OPDECr      = 0x05 // DEC r      00 rrr 101
	OPINCss     = 0x03 // INC ss     00 ss0 011
	OPDECss     = 0x0B // DEC ss     00 ss1 011
	OPADDHLss   = 0x09 // ADD HL,ss  00 ss1 001
	OPALUr      = 0x80 // ALU A,r    10 ooo rrr
	OPALUn      = 0xC6 // ALU A,n    11 ooo 110
	OPDAA       = 0x27
	OPCPL       = 0x2F
	OPCCF       = 0x3F
	OPSCF       = 0x37
	OPNOP       = 0x00
	OPHALT      = 0x76
	OPDI        = 0xF3
	OPEI        = 0xFB
	OPRLCA      = 0x07
	OPRLA       = 0x17
	OPRRCA      = 0x0F
	OPRRA       = 0x1F
	OPJP        = 0xC3 // JP nn
	OPJPcc      = 0xC2 // JP cc,nn   11 ccc 010
	OPJPHL      = 0xE9 // JP (HL)
	OPJR        = 0x18 // JR e
	OPJRcc      = 0x20 // JR cc,e    001 cc 000
	OPDJNZ      = 0x10 // DJNZ e
	OPCALL      = 0xCD // CALL nn
	OPCALLcc    = 0xC4 // CALL cc,nn 11 ccc 100
	OPRET       = 0xC9 // RET
	OPRETcc     = 0xC0 // RET cc     11 ccc 000
	OPRST       = 0xC7 // RST p      11 ttt 111
	OPINAn      = 0xDB // IN A,(n)
	OPOUTnA     = 0xD3 // OUT (n),A
	OPMemHLCode = 6    // r field for (HL)
)

// ALU operation fields, shifted into bits 3-5 of OPALUr and OPALUn.
const (
	ALUAdd = iota
	ALUAdc
	ALUSub
	ALUSbc
	ALUAnd
	ALUXor
	ALUOr
	ALUCp
)

// CB page operation fields.
const (
	CBRlc = iota
	CBRrc
	CBRl
	CBRr
	CBSla
	CBSra
	CBSll
	CBSrl

	CBBit = 0x40
	CBRes = 0x80
	CBSet = 0xC0
)

// Opcodes on the ED page.
const (
	EDINrC    = 0x40 // IN r,(C)   01 rrr 000
	EDOUTCr   = 0x41 // OUT (C),r  01 rrr 001
	EDSBCHLss = 0x42 // SBC HL,ss  01 ss0 010
	EDADCHLss = 0x4A // ADC HL,ss  01 ss1 010
	EDLDmemdd = 0x43 // LD (nn),dd 01 dd0 011
	EDLDddmem = 0x4B // LD dd,(nn) 01 dd1 011
	EDNEG     = 0x44
	EDRETN    = 0x45
	EDRETI    = 0x4D
	EDIM0     = 0x46
	EDIM1     = 0x56
	EDIM2     = 0x5E
	EDLDIA    = 0x47
	EDLDRA    = 0x4F
	EDLDAI    = 0x57
	EDLDAR    = 0x5F
	EDRRD     = 0x67
	EDRLD     = 0x6F
	EDINF     = 0x70 // IN (C) / IN F,(C)
	EDOUTC0   = 0x71 // OUT (C),0
	EDLDI     = 0xA0
	EDCPI     = 0xA1
	EDINI     = 0xA2
	EDOUTI    = 0xA3
	EDLDD     = 0xA8
	EDCPD     = 0xA9
	EDIND     = 0xAA
	EDOUTD    = 0xAB
	EDLDIR    = 0xB0
	EDCPIR    = 0xB1
	EDINIR    = 0xB2
	EDOTIR    = 0xB3
	EDLDDR    = 0xB8
	EDCPDR    = 0xB9
	EDINDR    = 0xBA
	EDOTDR    = 0xBB
)
