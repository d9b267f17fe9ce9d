package crdttest

import (
	"encoding/base64"
	"encoding/hex"
)

// Media URLs referenced by EditorUpdate.
const (
	EditorLinkURL     = "/media/7d3f9a2e-4b1c-4e8d-9f6a-2c5b8e1d0a37/attachments/2e6c1f9d-8a4b-4c7e-b3d5-9f0a1e2c4b68.pdf"
	EditorFileURL     = "/media/7d3f9a2e-4b1c-4e8d-9f6a-2c5b8e1d0a37/attachments/a4c8e2f6-1b3d-4f5a-9c7e-8d0b2a4c6e1f.png"
	EditorReplacedURL = "/media/7d3f9a2e-4b1c-4e8d-9f6a-2c5b8e1d0a37/attachments/c1e3a5b7-9d2f-4a6c-8e0b-1f3d5a7c9e2b.png"
	EditorImageURL    = "/media/7d3f9a2e-4b1c-4e8d-9f6a-2c5b8e1d0a37/attachments/5f7b9d1c-3e5a-4c8b-a2d4-6e8f0a1c3e5b-unsafe.svg"
)

// editorHex is the full state of a BlockNote document edited by client 1,
// written out struct by struct in the v1 layout with the collaborative
// editor's garbage collection applied:
//
//	frag := doc.getXmlFragment("document-store")
//	frag.insert(0, [blockGroup])
//	blockGroup.insert(0, [c1]); c1.setAttribute("id", "b1")
//	c1.insert(0, [paragraph]); paragraph.insert(0, [text])
//	text.insert(0, "Hello world", {link: {href: EditorLinkURL}})
//	text.delete(5, 6)
//	blockGroup.insert(1, [c2]); c2.setAttribute("id", "b2")
//	c2.insert(0, [image]); image.setAttribute("url", EditorReplacedURL)
//	c1.insert(1, [nested]); nested.insert(0, [c3]); c3.setAttribute("id", "b3")
//	c3.insert(0, [file]); file.setAttribute("url", EditorFileURL)
//	image.setAttribute("url", EditorImageURL)
//
// It does not go through Builder, so the decoder is checked against the
// wire layout rather than against this package's encoder.
const editorHex = "" +
	"01" + // one client
	"130100" + // 19 structs from client 1, starting at clock 0
	"07010e646f63756d656e742d73746f7265030a626c6f636b47726f7570" + // 0: blockGroup in root "document-store"
	"07000100030e626c6f636b436f6e7461696e6572" + // 1: blockContainer under 1:0
	"280001010269640177026231" + // 2: id=b1 on 1:1
	"070001010309706172616772617068" + // 3: paragraph under 1:1
	"0700010306" + // 4: XmlText under 1:3
	// 5: link format under 1:4
	"06000104046c696e6b6b7b2268726566223a222f6d656469612f376433663961" +
	"32652d346231632d346538642d396636612d3263356238653164306133372f61" +
	"74746163686d656e74732f32653663316639642d386134622d346337652d6233" +
	"64352d3966306131653263346236382e706466227d" +
	"8401050548656c6c6f" + // 6-10: "Hello" after 1:5
	"81010a06" + // 11-16: " world", deleted, after 1:10
	"860110046c696e6b046e756c6c" + // 17: link=null after 1:16
	"870101030e626c6f636b436f6e7461696e6572" + // 18: blockContainer after 1:1
	"280001120269640177026232" + // 19: id=b2 on 1:18
	"070001120305696d616765" + // 20: image under 1:18
	"210001140375726c01" + // 21: url on 1:20, overwritten and collected
	"870103030a626c6f636b47726f7570" + // 22: blockGroup after 1:3
	"07000116030e626c6f636b436f6e7461696e6572" + // 23: blockContainer under 1:22
	"280001170269640177026233" + // 24: id=b3 on 1:23
	"07000117030466696c65" + // 25: file under 1:23
	// 26: url on 1:25
	"280001190375726c0177602f6d656469612f37643366396132652d346231632d" +
	"346538642d396636612d3263356238653164306133372f6174746163686d656e" +
	"74732f61346338653266362d316233642d346635612d396337652d3864306232" +
	"613463366531662e706e67" +
	// 27: url on 1:20, replacing 1:21
	"a801150177672f6d656469612f37643366396132652d346231632d346538642d" +
	"396636612d3263356238653164306133372f6174746163686d656e74732f3566" +
	"3762396431632d336535612d346338622d613264342d36653866306131633365" +
	"35622d756e736166652e737667" +
	"0101020b061501" // delete set: client 1, clocks 11+6 and 21+1

// EditorUpdate returns the binary update described by editorHex.
func EditorUpdate() []byte {
	b, err := hex.DecodeString(editorHex)
	if err != nil {
		panic(err)
	}
	return b
}

// EditorBase64 is EditorUpdate as stored in a document's content blob.
func EditorBase64() string {
	return base64.StdEncoding.EncodeToString(EditorUpdate())
}
